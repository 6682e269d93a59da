package echoguard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionguard "github.com/sessionkit/go-session-guard"
	"github.com/sessionkit/go-session-guard/session"
)

type stubVerifier struct {
	sessions map[string]*session.Claims
}

func (v *stubVerifier) Verify(ctx context.Context, token string) (*session.Claims, error) {
	claims, ok := v.sessions[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

func newTestGuard(t *testing.T) *sessionguard.Guard {
	t.Helper()

	guard, err := sessionguard.New(
		sessionguard.WithVerifier(&stubVerifier{sessions: map[string]*session.Claims{
			"member-token": {
				SessionID:               "sess_1",
				UserID:                  "user_1",
				OrganizationID:          "org_1",
				OrganizationRole:        "member",
				OrganizationPermissions: []string{"org:reports:read"},
			},
		}}),
	)
	require.NoError(t, err)
	return guard
}

func TestMiddleware(t *testing.T) {
	t.Run("it lets a valid session through and stores it in the context", func(t *testing.T) {
		e := echo.New()
		e.Use(Middleware(newTestGuard(t)))
		e.GET("/dashboard", func(c echo.Context) error {
			claims, ok := SessionFromContext(c, "")
			require.True(t, ok)
			return c.String(http.StatusOK, claims.UserID)
		})

		r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		r.Header.Set("Authorization", "Bearer member-token")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user_1", w.Body.String())
	})

	t.Run("it redirects an anonymous request and stops the chain", func(t *testing.T) {
		handlerCalled := false
		e := echo.New()
		e.Use(Middleware(newTestGuard(t)))
		e.GET("/dashboard", func(c echo.Context) error {
			handlerCalled = true
			return nil
		})

		r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.False(t, handlerCalled)

		location, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, sessionguard.DefaultSignInURL, location.Path)
	})

	t.Run("it denies an under-privileged session via check options", func(t *testing.T) {
		handlerCalled := false
		e := echo.New()
		e.Use(Middleware(newTestGuard(t), WithCheckOptions(
			sessionguard.WithQuery(session.Query{Permission: "org:team_settings:manage"}),
		)))
		e.GET("/settings", func(c echo.Context) error {
			handlerCalled = true
			return nil
		})

		r := httptest.NewRequest(http.MethodGet, "/settings", nil)
		r.Header.Set("Authorization", "Bearer member-token")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.False(t, handlerCalled)
		assert.Equal(t, sessionguard.DefaultUnauthorizedURL, w.Header().Get("Location"))
	})

	t.Run("it stores the session under an overridden key", func(t *testing.T) {
		e := echo.New()
		e.Use(Middleware(newTestGuard(t), WithSessionKey("auth")))
		e.GET("/dashboard", func(c echo.Context) error {
			_, ok := SessionFromContext(c, "")
			assert.False(t, ok)

			claims, ok := SessionFromContext(c, "auth")
			require.True(t, ok)
			return c.String(http.StatusOK, claims.UserID)
		})

		r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		r.Header.Set("Authorization", "Bearer member-token")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user_1", w.Body.String())
	})
}
