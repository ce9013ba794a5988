// Package logctx carries the request or event scoped logger through a context.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type key struct{}

func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, key{}, logger)
}

// From returns nil when ctx carries no logger.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(key{}).(observability.Logger)
	return l
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if l := From(ctx); l != nil {
		return l
	}
	return fallback
}

// WithFields enriches the scoped logger, if any, so later log lines in the same request carry fields.
func WithFields(ctx context.Context, fields ...observability.Field) context.Context {
	l := From(ctx)
	if l == nil || len(fields) == 0 {
		return ctx
	}
	return With(ctx, l.With(fields...))
}
