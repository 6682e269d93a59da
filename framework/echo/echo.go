// Package echoguard adapts the session guard to Echo middleware chains.
package echoguard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	sessionguard "github.com/sessionkit/go-session-guard"
	"github.com/sessionkit/go-session-guard/session"
)

// DefaultSessionKey is the Echo context key the verified session is stored
// under.
const DefaultSessionKey = "session"

// Middleware returns an Echo middleware that runs the guard before the
// next handler. Requests the guard does not allow are answered by the
// guard (redirect or error response) and the chain stops.
func Middleware(guard *sessionguard.Guard, opts ...Option) echo.MiddlewareFunc {
	config := &middlewareConfig{
		sessionKey: DefaultSessionKey,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)

				if claims, ok := sessionguard.SessionFromContext(r.Context()); ok {
					c.Set(config.sessionKey, claims)
				}

				nextErr = next(c)
			}

			guard.Protect(handler, config.checkOptions...).ServeHTTP(c.Response(), c.Request())

			return nextErr
		}
	}
}

// SessionFromContext retrieves the verified session claims stored by the
// middleware. Pass the key configured with WithSessionKey, or an empty
// string for the default.
func SessionFromContext(c echo.Context, key string) (*session.Claims, bool) {
	if key == "" {
		key = DefaultSessionKey
	}

	value := c.Get(key)
	if value == nil {
		return nil, false
	}

	claims, ok := value.(*session.Claims)
	return claims, ok && claims != nil
}
