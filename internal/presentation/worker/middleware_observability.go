package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext injects a request-scoped logger for background executions.
// Dynamic fields only: trace_id/span_id (if valid), event_id (generated if empty),
// plus caller-provided low-cardinality attributes (e.g. "event", "handler").
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = logctx.FromOr(ctx, observability.NopLogger())
	}

	fields := make([]observability.Field, 0, len(attrs)+3)

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// Instrument wraps a bus handler with a span, an event-scoped logger and the
// event_handled_total{event,handler,outcome} counter.
func Instrument(tel observability.Observability, handlerName string) func(domoutbox.Handler) domoutbox.Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	counter := tel.Metrics().Counter(observability.MEventHandled)
	tracer := tel.Tracer()
	base := tel.Logger().With(observability.F("component", "event_worker"))

	return func(next domoutbox.Handler) domoutbox.Handler {
		return func(ctx context.Context, e domoutbox.Event) error {
			name := e.EventName()
			ctx, span := tracer.Start(ctx, "EVT."+name,
				attribute.String("event", name),
				attribute.String("handler", handlerName),
			)
			defer span.End()

			sc := span.SpanContext()
			ctx = WithEventContext(ctx, logctx.FromOr(ctx, base), sc.TraceID(), sc.SpanID(), map[string]string{
				"event":   name,
				"handler": handlerName,
			})

			err := next(ctx, e)
			outcome := "success"
			if err != nil {
				outcome = "error"
				span.RecordError(err)
				span.SetStatus(codes.Error, "HANDLER_FAILED")
				logctx.FromOr(ctx, base).Warn("event_handle_failed", observability.Err(err))
			}
			counter.Add(1,
				observability.L("event", name),
				observability.L("handler", handlerName),
				observability.L("outcome", outcome),
			)
			return err
		}
	}
}
