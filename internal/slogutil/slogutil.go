// Package slogutil carries structured log attributes through a context so
// nested components log with the attributes of the operation that reached
// them.
package slogutil

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With returns a context whose logger carries the given attributes on top of
// any attributes already present.
func With(ctx context.Context, args ...any) context.Context {
	return context.WithValue(ctx, ctxKey{}, FromContext(ctx).With(args...))
}

// FromContext returns the logger attached to ctx, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
