package logger

import (
	"context"
	"log/slog"
)

type fieldsKey struct{}

// With returns a context carrying fields for every logger later derived from it
// through FromContext. Fields accumulate across calls.
func With(ctx context.Context, fields ...any) context.Context {
	prev := Fields(ctx)
	merged := make([]any, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// Fields returns the key/value pairs stored by With.
func Fields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]any)
	return fields
}

// FromContext returns base enriched with the context fields. A nil base falls
// back to the process logger.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = LoggerWrapper()
	}
	if fields := Fields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}
