package logtrace

import (
	"context"
)

type requestIdContextKey string

const requestIdKey = requestIdContextKey("requestId")

// RequestIDHeader is the header used to propagate request ids between client and server.
const RequestIDHeader = "X-Request-ID"

// WithRequestId returns a copy of ctx carrying the given request id.
func WithRequestId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIdKey, id)
}

// RequestIdFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or if no request ID is found.
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(requestIdKey).(string)
	if !ok {
		return ""
	}
	return r
}
