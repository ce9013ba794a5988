package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldLogger struct {
	observability.Logger
	fields []observability.Field
}

func (l *fieldLogger) With(fields ...observability.Field) observability.Logger {
	return &fieldLogger{Logger: l.Logger, fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}

func TestFromOrFallsBack(t *testing.T) {
	fallback := observability.NopLogger()
	assert.Equal(t, fallback, FromOr(context.Background(), fallback))
	assert.Nil(t, From(context.Background()))
}

func TestWithFieldsEnrichesScopedLogger(t *testing.T) {
	base := &fieldLogger{Logger: observability.NopLogger()}
	ctx := With(context.Background(), base)
	ctx = WithFields(ctx, observability.F("buyer_role", "ADMIN"))

	got, ok := From(ctx).(*fieldLogger)
	require.True(t, ok)
	assert.Equal(t, []observability.Field{{Key: "buyer_role", Value: "ADMIN"}}, got.fields)
	assert.Empty(t, base.fields)
}

func TestWithFieldsWithoutLoggerIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithFields(ctx, observability.F("k", "v")))
}
