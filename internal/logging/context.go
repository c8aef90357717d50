package logging

import "context"

type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID attaches a request id that log lines can pick up.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if val, ok := ctx.Value(requestIDKey).(string); ok {
		return val
	}
	return ""
}
