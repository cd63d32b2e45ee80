package rowsnap

import (
	"context"
)

// metaKey is an unexported context key type.
type metaKey struct{}
type skipFallbackKey struct{}

// meta carries operational context attached to log records.
type meta struct {
	operator string
	traceID  string
}

// WithOperator attaches an operator identifier to the context.
func WithOperator(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.operator = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithTraceID attaches a trace identifier.
func WithTraceID(ctx context.Context, v string) context.Context {
	m := extractMeta(ctx)
	m.traceID = v
	return context.WithValue(ctx, metaKey{}, m)
}

// WithoutFallback disables the UPDATE-to-INSERT rewrite for statements run with ctx.
func WithoutFallback(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipFallbackKey{}, true)
}

// extractMeta extracts metadata from context.
func extractMeta(ctx context.Context) meta {
	if v := ctx.Value(metaKey{}); v != nil {
		if m, ok := v.(meta); ok {
			return m
		}
	}
	return meta{}
}

// logAttrs renders the context metadata as slog key/value pairs.
func logAttrs(ctx context.Context) []any {
	m := extractMeta(ctx)
	var attrs []any
	if m.operator != "" {
		attrs = append(attrs, "operator", m.operator)
	}
	if m.traceID != "" {
		attrs = append(attrs, "trace_id", m.traceID)
	}
	return attrs
}

// extractSkipFallback extracts the skip flag from context.
func extractSkipFallback(ctx context.Context) bool {
	if v, ok := ctx.Value(skipFallbackKey{}).(bool); ok {
		return v
	}
	return false
}
