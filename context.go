package sessionguard

import (
	"context"

	"github.com/sessionkit/go-session-guard/session"
)

// contextKey is an unexported type for context keys to prevent collisions
// with keys set by other packages.
type contextKey int

const sessionContextKey contextKey = iota

// SetSession stores a verified claims record in the context. The guard
// calls this before invoking the protected handler; adapters may use it to
// propagate the session across framework boundaries.
func SetSession(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, sessionContextKey, claims)
}

// SessionFromContext retrieves the verified claims record set by the guard,
// if any.
func SessionFromContext(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(sessionContextKey).(*session.Claims)
	return claims, ok && claims != nil
}

// HasSession reports whether the context carries a verified claims record.
func HasSession(ctx context.Context) bool {
	_, ok := SessionFromContext(ctx)
	return ok
}
