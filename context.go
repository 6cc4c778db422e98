package goGuard

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a correlation ID to ctx. The middleware sets it from the
// X-Request-ID header or generates one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the correlation ID attached by [WithRequestID].
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
