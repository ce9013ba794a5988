package workerpresentation

import (
	"context"
	"errors"
	"testing"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

type recordingLogger struct {
	fields []observability.Field
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}
func (l *recordingLogger) Debug(string, ...observability.Field) {}
func (l *recordingLogger) Info(string, ...observability.Field)  {}
func (l *recordingLogger) Warn(string, ...observability.Field)  {}
func (l *recordingLogger) Error(string, ...observability.Field) {}

func fieldMap(fields []observability.Field) map[string]any {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}

type named string

func (n named) EventName() string { return string(n) }

func TestWithEventContextBindsFields(t *testing.T) {
	ctx := WithEventContext(context.Background(), &recordingLogger{}, trace.TraceID{}, trace.SpanID{}, map[string]string{
		"event":    "order.placed",
		"event_id": "evt-1",
		"empty":    "",
	})

	logger, ok := logctx.From(ctx).(*recordingLogger)
	require.True(t, ok)
	fields := fieldMap(logger.fields)
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "order.placed", fields["event"])
	assert.NotContains(t, fields, "empty")
	assert.NotContains(t, fields, "trace_id")
}

func TestWithEventContextGeneratesEventID(t *testing.T) {
	ctx := WithEventContext(context.Background(), &recordingLogger{}, trace.TraceID{}, trace.SpanID{}, nil)
	logger := logctx.From(ctx).(*recordingLogger)
	assert.NotEmpty(t, fieldMap(logger.fields)["event_id"])
}

func TestInstrumentPassesThroughResult(t *testing.T) {
	wrap := Instrument(nil, "kafka_relay")
	boom := errors.New("boom")

	var sawLogger bool
	h := wrap(func(ctx context.Context, _ domoutbox.Event) error {
		sawLogger = logctx.From(ctx) != nil
		return boom
	})

	assert.ErrorIs(t, h(context.Background(), named("order.placed")), boom)
	assert.True(t, sawLogger)
}
