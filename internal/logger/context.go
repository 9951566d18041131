package logger

import "context"

type requestIDKey struct{}

// WithRequestID tags ctx with the ID of the HTTP request or favorites event
// being handled. The slog handler from New copies it onto every record.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the ID set by WithRequestID, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
