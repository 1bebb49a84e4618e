// Package contextkeys holds every request-scoped context key of civicbase.
//
// Values are stored untyped here so that this package imports nothing from
// the rest of the module; the owning package asserts the concrete type:
//
//	ctx = contextkeys.WithAuth(ctx, caller)
//	caller, ok := ctx.Value(contextkeys.AuthKey).(*auth.Caller)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey holds the authenticated *auth.Caller. Set by the bearer
	// middleware, read by rbac and handlers.
	AuthKey Key = "auth_context"

	// RequestIDKey holds the request id string set by
	// httputil.RequestIDMiddleware.
	RequestIDKey Key = "request_id"

	// UserIDKey holds the caller's user id, for log correlation.
	UserIDKey Key = "user_id"

	// LoggerKey holds the base *observability.Logger.
	LoggerKey Key = "logger"

	// AuditEntryKey holds the in-flight *audit.Entry of the request.
	AuditEntryKey Key = "audit_entry"
)

func with(ctx context.Context, k Key, v any) context.Context {
	return context.WithValue(ctx, k, v)
}

func str(ctx context.Context, k Key) string {
	s, _ := ctx.Value(k).(string)
	return s
}

func WithAuth(ctx context.Context, caller any) context.Context { return with(ctx, AuthKey, caller) }

func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, RequestIDKey, id)
}

func WithUserID(ctx context.Context, id string) context.Context { return with(ctx, UserIDKey, id) }

func WithLogger(ctx context.Context, logger any) context.Context {
	return with(ctx, LoggerKey, logger)
}

func WithAuditEntry(ctx context.Context, entry any) context.Context {
	return with(ctx, AuditEntryKey, entry)
}

// GetRequestID returns the request id, or "" outside a request
func GetRequestID(ctx context.Context) string { return str(ctx, RequestIDKey) }

// GetUserID returns the caller's user id, or "" when unauthenticated
func GetUserID(ctx context.Context) string { return str(ctx, UserIDKey) }
