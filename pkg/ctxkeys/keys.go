// Package ctxkeys defines typed context keys shared by middleware and handlers.
package ctxkeys

import "context"

// Key is a typed context key to prevent collisions.
type Key string

const (
	KeyUserID    Key = "user_id"
	KeySessionID Key = "session_id"
	KeyEmail     Key = "email"
	KeyAuthType  Key = "auth_type"
	KeyRequestID Key = "request_id"
)

// GetUserID extracts user_id from context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(KeyUserID).(string); ok {
		return v
	}
	return ""
}

// GetSessionID extracts session_id from context.
func GetSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(KeySessionID).(string); ok {
		return v
	}
	return ""
}

// GetRequestID extracts request_id from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(KeyRequestID).(string); ok {
		return v
	}
	return ""
}
