package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// ContextKey is the type for context values set by the API layer.
type ContextKey string

// Context keys for request-scoped values
const (
	// UserContextKey is the context key under which the auth middleware
	// stores the authenticated *domain.User.
	UserContextKey ContextKey = "user"

	// TokenContextKey is the context key for the presented session token.
	// Logout needs it to revoke exactly the session that made the request.
	TokenContextKey ContextKey = "token"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// traceIDLength is the number of random bytes in a trace ID
	traceIDLength = 16 // 32 hex characters
)

// SetTraceID adds a fresh trace ID to the context, used to correlate logs
// and error responses.
func SetTraceID(ctx context.Context) context.Context {
	b := make([]byte, traceIDLength)
	// crypto/rand.Read only fails when the platform's entropy source is
	// broken; an empty trace ID is an acceptable degradation there.
	if _, err := rand.Read(b); err != nil {
		return ctx
	}
	return context.WithValue(ctx, TraceIDKey, hex.EncodeToString(b))
}

// GetTraceID retrieves the trace ID from the context, or an empty string
// when none is set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}
