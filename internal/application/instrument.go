package application

import (
	"context"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Instruments is the RED envelope every use case runs inside. Build it once per service.
type Instruments struct {
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	cacheCounter observability.Counter   // cache_requests_total{op,result}
}

func NewInstruments(tel observability.Observability, service string) Instruments {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return Instruments{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
		cacheCounter: m.Counter(observability.MCacheRequests),
	}
}

// Run tracks one use case execution from Begin to Finish.
type Run struct {
	ins     *Instruments
	useCase string
	ctx     context.Context
	span    trace.Span
	start   time.Time

	Log        observability.Logger
	outcome    string
	statusText string
	publishErr error
	fields     []observability.Field
}

// Begin opens the span and returns the context the use case must use from then on.
func (ins *Instruments) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := ins.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	return ctx, &Run{
		ins:        ins,
		useCase:    useCase,
		ctx:        ctx,
		span:       span,
		start:      time.Now(),
		Log:        logctx.FromOr(ctx, ins.log).With(observability.F("use_case", useCase)),
		outcome:    "success",
		statusText: "OK",
	}
}

// Fail marks the run as failed with a stable status code and returns err unchanged.
func (r *Run) Fail(statusText string, err error) error {
	r.outcome, r.statusText = "error", statusText
	return err
}

// Status overrides the status text of a successful run.
func (r *Run) Status(statusText string) { r.statusText = statusText }

// Field adds a field to the closing log line.
func (r *Run) Field(k string, v any) { r.fields = append(r.fields, observability.F(k, v)) }

func (r *Run) Span() trace.Span { return r.span }

// Context is the span-carrying context returned by Begin.
func (r *Run) Context() context.Context { return r.ctx }

// Finish closes the span, records metrics and writes the use_case_done line. Call it deferred with &err.
func (r *Run) Finish(errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	if err != nil && r.outcome == "success" {
		r.outcome, r.statusText = "error", "INTERNAL"
	}
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.statusText)
		} else {
			r.span.SetStatus(codes.Ok, r.statusText)
		}
		r.span.End()
	}

	r.ins.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.ins.durHistogram.Observe(lat, observability.L("use_case", r.useCase))

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.statusText),
		observability.F("latency_seconds", lat),
	}
	fields = append(fields, r.fields...)
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if r.publishErr != nil {
		fields = append(fields, observability.F("event_publish_error", r.publishErr.Error()))
	}
	if err != nil {
		fields = append(fields, observability.Err(err))
	}
	r.Log.Info("use_case_done", fields...)
}

// Publish hands committed events to the publisher. A publish failure never fails the run:
// the state change is already durable, so it is only logged and counted.
func (r *Run) Publish(pub domoutbox.Publisher, events ...domoutbox.Event) {
	if pub == nil {
		return
	}
	for _, e := range events {
		endpoint := e.EventName()
		pubCtx, cancel := context.WithTimeout(r.ctx, publishTimeout)
		start := time.Now()
		outcome := "success"

		err := pub.Publish(pubCtx, e)
		if err != nil {
			outcome = "error"
		} else if pubCtx.Err() != nil {
			outcome, err = "canceled", pubCtx.Err()
		}
		cancel()

		r.ins.extCounter.Add(1,
			observability.L("peer", publishPeer),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		r.ins.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", publishPeer),
			observability.L("endpoint", endpoint),
		)
		if err != nil && r.publishErr == nil {
			r.publishErr = err
		}
		if err == nil {
			r.span.AddEvent(endpoint)
		}
	}
}

// CacheResult counts a cache operation. result is hit, miss, ok or error.
func (ins *Instruments) CacheResult(op, result string) {
	ins.cacheCounter.Add(1, observability.L("op", op), observability.L("result", result))
}
