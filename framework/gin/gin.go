// Package ginguard adapts the session guard to Gin handler chains.
package ginguard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	sessionguard "github.com/sessionkit/go-session-guard"
	"github.com/sessionkit/go-session-guard/session"
)

// DefaultSessionKey is the Gin context key the verified session is stored
// under.
const DefaultSessionKey = "session"

// Middleware returns a Gin middleware that runs the guard before the rest
// of the handler chain. Requests the guard does not allow are answered by
// the guard (redirect or error response) and the chain is aborted.
func Middleware(guard *sessionguard.Guard, opts ...Option) gin.HandlerFunc {
	config := &middlewareConfig{
		sessionKey: DefaultSessionKey,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r

			if claims, ok := sessionguard.SessionFromContext(r.Context()); ok {
				c.Set(config.sessionKey, claims)
			}

			c.Next()
		}

		guard.Protect(handler, config.checkOptions...).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}

// SessionFromContext retrieves the verified session claims stored by the
// middleware. Pass the key configured with WithSessionKey, or an empty
// string for the default.
func SessionFromContext(c *gin.Context, key string) (*session.Claims, bool) {
	if key == "" {
		key = DefaultSessionKey
	}

	value, exists := c.Get(key)
	if !exists {
		return nil, false
	}

	claims, ok := value.(*session.Claims)
	return claims, ok && claims != nil
}
