// Package context carries tracing values for Foreman operations.
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ctxKey is unexported so keys never collide with other packages. Each key
// is a distinct value of the type.
type ctxKey int

const (
	correlationIDKey ctxKey = iota
	userIDKey
	operationKey
	buildIDKey
	sessionIDKey
	startTimeKey
)

// WithCorrelationID tags the context with a correlation id, generating one when empty
func WithCorrelationID(parent context.Context, correlationID string) context.Context {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}
	return context.WithValue(parent, correlationIDKey, correlationID)
}

// CorrelationID returns the correlation id or "" when absent
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithUserID tags the context with the caller's user id
func WithUserID(parent context.Context, userID string) context.Context {
	return context.WithValue(parent, userIDKey, userID)
}

// UserID returns the user id or "anonymous"
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return "anonymous"
}

// WithOperation names the operation running under ctx
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// Operation returns the operation name or ""
func Operation(ctx context.Context) string {
	op, _ := ctx.Value(operationKey).(string)
	return op
}

// WithBuildID scopes ctx to one build record
func WithBuildID(parent context.Context, buildID string) context.Context {
	return context.WithValue(parent, buildIDKey, buildID)
}

// BuildID returns the build id or ""
func BuildID(ctx context.Context) string {
	id, _ := ctx.Value(buildIDKey).(string)
	return id
}

// WithSessionID scopes ctx to one guided session
func WithSessionID(parent context.Context, sessionID string) context.Context {
	return context.WithValue(parent, sessionIDKey, sessionID)
}

// SessionID returns the session id or ""
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// Elapsed returns the time since Begin was called on ctx, or zero
func Elapsed(ctx context.Context) time.Duration {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return time.Since(t)
	}
	return 0
}

// NewCorrelationID creates a new correlation id
func NewCorrelationID() string {
	return "cor_" + uuid.New().String()
}

// Begin marks the start of a named operation, adding a correlation id if missing
func Begin(parent context.Context, operation string) context.Context {
	ctx := parent
	if CorrelationID(ctx) == "" {
		ctx = WithCorrelationID(ctx, "")
	}
	ctx = WithOperation(ctx, operation)
	return context.WithValue(ctx, startTimeKey, time.Now())
}

// Fields returns the tracing values present on ctx for structured logging
func Fields(ctx context.Context) map[string]interface{} {
	fields := make(map[string]interface{})
	if id := CorrelationID(ctx); id != "" {
		fields["correlation_id"] = id
	}
	if op := Operation(ctx); op != "" {
		fields["operation"] = op
	}
	if id := BuildID(ctx); id != "" {
		fields["build_id"] = id
	}
	if id := SessionID(ctx); id != "" {
		fields["session_id"] = id
	}
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		fields["user_id"] = id
	}
	if d := Elapsed(ctx); d > 0 {
		fields["duration_ms"] = d.Milliseconds()
	}
	return fields
}
