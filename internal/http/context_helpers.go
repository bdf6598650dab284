package httpx

import "context"

// userIDKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type userIDKey struct{}

// requestIDKey carries the per-request correlation ID.
type requestIDKey struct{}

// SetUserIDInContext returns a child context that carries the caller's user ID.
// If userID is empty, the original ctx is returned unchanged.
func SetUserIDInContext(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserIDFromContext returns the user ID from context and a boolean indicating presence.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(userIDKey{}).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// SetRequestIDInContext returns a child context carrying the request ID.
func SetRequestIDInContext(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestIDFromContext returns the request ID from context, or empty string.
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
