package sessionguard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sessionkit/go-session-guard/session"
)

// Default redirect targets, overridable per guard and per check.
const (
	DefaultSignInURL       = "/sign-in"
	DefaultUnauthorizedURL = "/unauthorized"
)

// returnToParam carries the original request URL on sign-in redirects.
const returnToParam = "return_to"

// DecisionKind enumerates the possible outcomes of a guard check.
type DecisionKind int

const (
	// DecisionAllow lets the request through with a verified session.
	DecisionAllow DecisionKind = iota

	// DecisionSignInRedirect sends an unauthenticated caller to sign in.
	DecisionSignInRedirect

	// DecisionUnauthorizedRedirect sends an authenticated but
	// under-privileged caller to the unauthorized page.
	DecisionUnauthorizedRedirect

	// DecisionReject denies the request outright; used when the guard
	// runs in a context that cannot redirect.
	DecisionReject
)

// String returns the decision kind as a stable label, also used as the
// outcome tag on metrics.
func (k DecisionKind) String() string {
	switch k {
	case DecisionAllow:
		return "allow"
	case DecisionSignInRedirect:
		return "sign_in_redirect"
	case DecisionUnauthorizedRedirect:
		return "unauthorized_redirect"
	case DecisionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision is the transient outcome of one guard check. Claims is non-nil
// only for DecisionAllow and DecisionUnauthorizedRedirect (where the caller
// was authenticated but not authorized). Reason is set for every kind
// except DecisionAllow.
type Decision struct {
	Kind        DecisionKind
	Claims      *session.Claims
	RedirectURL string
	Reason      error
}

// TokenVerifier verifies a raw session token and returns its claims
// record. Implemented by *verifier.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*session.Claims, error)
}

// Guard orchestrates token extraction, verification and authorization for
// inbound requests and turns the result into a Decision. It holds no
// per-request state and is safe for concurrent use; the only I/O it can
// trigger is whatever the verifier's key func performs.
type Guard struct {
	verifier        TokenVerifier
	tokenExtractor  TokenExtractor
	errorHandler    ErrorHandler
	signInURL       string
	unauthorizedURL string
	redirects       bool
	trustedProxies  *TrustedProxyConfig
	logger          Logger
	metrics         Metrics
	tracer          Tracer
}

// New constructs a new Guard with the supplied options. WithVerifier is
// required.
func New(opts ...Option) (*Guard, error) {
	g := &Guard{
		signInURL:       DefaultSignInURL,
		unauthorizedURL: DefaultUnauthorizedURL,
		redirects:       true,
		logger:          &NoopLogger{},
		metrics:         &NoopMetrics{},
		tracer:          &NoopTracer{},
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if g.verifier == nil {
		return nil, ErrVerifierNil
	}

	if g.tokenExtractor == nil {
		g.tokenExtractor = MultiTokenExtractor(
			AuthHeaderTokenExtractor,
			CookieTokenExtractor(DefaultSessionCookieName),
		)
	}
	if g.errorHandler == nil {
		g.errorHandler = DefaultErrorHandler
	}

	return g, nil
}

// checkConfig holds per-check overrides for Evaluate, Check and Protect.
type checkConfig struct {
	query           *session.Query
	signInURL       string
	unauthorizedURL string
}

// CheckOption configures a single guard check, typically per route.
type CheckOption func(*checkConfig)

// WithQuery requires the session to satisfy the authorization query on top
// of being authenticated.
func WithQuery(query session.Query) CheckOption {
	return func(cfg *checkConfig) {
		cfg.query = &query
	}
}

// WithSignInRedirect overrides the guard's sign-in URL for this check.
func WithSignInRedirect(signInURL string) CheckOption {
	return func(cfg *checkConfig) {
		cfg.signInURL = signInURL
	}
}

// WithUnauthorizedRedirect overrides the guard's unauthorized URL for this
// check.
func WithUnauthorizedRedirect(unauthorizedURL string) CheckOption {
	return func(cfg *checkConfig) {
		cfg.unauthorizedURL = unauthorizedURL
	}
}

func (g *Guard) newCheckConfig(opts []CheckOption) *checkConfig {
	cfg := &checkConfig{
		signInURL:       g.signInURL,
		unauthorizedURL: g.unauthorizedURL,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Evaluate runs the guard state machine over an already-verified claims
// record (or its absence). Authentication is always decided before
// authorization: the query is never consulted without a claims record.
// Evaluate performs no I/O.
func (g *Guard) Evaluate(claims *session.Claims, opts ...CheckOption) Decision {
	cfg := g.newCheckConfig(opts)
	return g.evaluate(claims, cfg)
}

func (g *Guard) evaluate(claims *session.Claims, cfg *checkConfig) Decision {
	if claims == nil || claims.UserID == "" {
		return g.unauthenticated(cfg, ErrSessionMissing)
	}

	if cfg.query == nil {
		return Decision{Kind: DecisionAllow, Claims: claims}
	}

	if claims.Has(*cfg.query) {
		return Decision{Kind: DecisionAllow, Claims: claims}
	}

	if !g.redirects {
		return Decision{Kind: DecisionReject, Claims: claims, Reason: ErrSessionForbidden}
	}

	return Decision{
		Kind:        DecisionUnauthorizedRedirect,
		Claims:      claims,
		RedirectURL: cfg.unauthorizedURL,
		Reason:      ErrSessionForbidden,
	}
}

func (g *Guard) unauthenticated(cfg *checkConfig, reason error) Decision {
	if !g.redirects {
		return Decision{Kind: DecisionReject, Reason: reason}
	}
	return Decision{Kind: DecisionSignInRedirect, RedirectURL: cfg.signInURL, Reason: reason}
}

// Check verifies a raw token and evaluates the guard state machine. An
// empty token means no credentials were presented.
func (g *Guard) Check(ctx context.Context, token string, opts ...CheckOption) Decision {
	cfg := g.newCheckConfig(opts)

	var decision Decision
	if token == "" {
		decision = g.unauthenticated(cfg, ErrSessionMissing)
	} else {
		start := time.Now()
		claims, err := g.verifier.Verify(ctx, token)
		g.metrics.ObserveHistogram(metricVerifyDuration, time.Since(start).Seconds(), nil)

		if err != nil {
			g.logger.Warnf("session verification failed: %v", err)
			decision = g.unauthenticated(cfg, invalidError{details: err})
		} else {
			decision = g.evaluate(claims, cfg)
		}
	}

	g.metrics.IncCounter(metricDecisions, map[string]string{"outcome": decision.Kind.String()})
	return decision
}

// Protect wraps an HTTP handler so it only runs for requests that pass the
// guard. Per-route authorization and redirect overrides are passed as
// check options:
//
//	mux.Handle("/settings", guard.Protect(settingsHandler,
//		sessionguard.WithQuery(session.Query{Permission: "org:team_settings:manage"}),
//	))
func (g *Guard) Protect(next http.Handler, opts ...CheckOption) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := g.tracer.StartSpan("sessionguard.protect")
		defer span.Finish()

		token, err := g.tokenExtractor(r)
		if err != nil {
			// This is not a missing token: the extractor found malformed
			// credentials.
			g.logger.Errorf("failed to extract session token: %v", err)
			span.SetTag("session.decision", "extract_error")
			g.errorHandler(w, r, invalidError{details: fmt.Errorf("error extracting token: %w", err)})
			return
		}

		decision := g.Check(r.Context(), token, opts...)
		span.SetTag("session.decision", decision.Kind.String())

		switch decision.Kind {
		case DecisionAllow:
			g.logger.Debugf("session verified for user %s", decision.Claims.UserID)
			next.ServeHTTP(w, r.Clone(SetSession(r.Context(), decision.Claims)))
		case DecisionSignInRedirect:
			http.Redirect(w, r, g.signInRedirectURL(r, decision.RedirectURL), http.StatusFound)
		case DecisionUnauthorizedRedirect:
			http.Redirect(w, r, decision.RedirectURL, http.StatusFound)
		default:
			g.errorHandler(w, r, decision.Reason)
		}
	})
}

// RequireSession is shorthand for Protect with no authorization query.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return g.Protect(next)
}

// signInRedirectURL attaches the original request URL to the sign-in
// target so the sign-in flow can send the user back. An explicit return_to
// already present on the target wins.
func (g *Guard) signInRedirectURL(r *http.Request, target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}

	query := parsed.Query()
	if query.Get(returnToParam) == "" {
		query.Set(returnToParam, reconstructRequestURL(r, g.trustedProxies))
		parsed.RawQuery = query.Encode()
	}

	return parsed.String()
}
