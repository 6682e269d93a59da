package sessionguard

import (
	"errors"
)

// Guard configuration errors.
var (
	// ErrVerifierNil is returned by New when no token verifier was
	// provided.
	ErrVerifierNil = errors.New("a token verifier is required (use WithVerifier)")
)

// Option is how options for the Guard are set up.
type Option func(*Guard) error

// WithVerifier sets up the token verifier the guard uses to validate
// session tokens. Required.
func WithVerifier(v TokenVerifier) Option {
	return func(g *Guard) error {
		if v == nil {
			return ErrVerifierNil
		}
		g.verifier = v
		return nil
	}
}

// WithTokenExtractor sets up the function which gets the session token from
// the request. The default extractor checks the Authorization header and
// falls back to the session cookie.
func WithTokenExtractor(e TokenExtractor) Option {
	return func(g *Guard) error {
		if e == nil {
			return errors.New("token extractor must not be nil")
		}
		g.tokenExtractor = e
		return nil
	}
}

// WithErrorHandler sets the handler which is called when the guard rejects
// a request without redirecting. By default DefaultErrorHandler is used.
func WithErrorHandler(h ErrorHandler) Option {
	return func(g *Guard) error {
		if h == nil {
			return errors.New("error handler must not be nil")
		}
		g.errorHandler = h
		return nil
	}
}

// WithSignInURL sets the URL unauthenticated requests are redirected to.
// Defaults to DefaultSignInURL.
func WithSignInURL(signInURL string) Option {
	return func(g *Guard) error {
		if signInURL == "" {
			return errors.New("sign-in URL must not be empty")
		}
		g.signInURL = signInURL
		return nil
	}
}

// WithUnauthorizedURL sets the URL under-privileged requests are redirected
// to. Defaults to DefaultUnauthorizedURL.
func WithUnauthorizedURL(unauthorizedURL string) Option {
	return func(g *Guard) error {
		if unauthorizedURL == "" {
			return errors.New("unauthorized URL must not be empty")
		}
		g.unauthorizedURL = unauthorizedURL
		return nil
	}
}

// WithRedirects controls whether the guard answers failed checks with
// redirects or hands them to the error handler. Disable for API-style
// services where a 302 to a sign-in page is meaningless.
func WithRedirects(enabled bool) Option {
	return func(g *Guard) error {
		g.redirects = enabled
		return nil
	}
}

// WithTrustedProxies tells the guard which forwarding headers it may trust
// when it reconstructs the original request URL for sign-in redirects.
// Without it the guard only uses what the request itself carries.
func WithTrustedProxies(config *TrustedProxyConfig) Option {
	return func(g *Guard) error {
		if config == nil {
			return errors.New("trusted proxy config must not be nil")
		}
		g.trustedProxies = config
		return nil
	}
}

// WithStandardProxy trusts the de facto standard X-Forwarded-Proto and
// X-Forwarded-Host headers, which covers typical Nginx, Apache and HAProxy
// deployments. Only use this behind a proxy that strips inbound forwarding
// headers.
func WithStandardProxy() Option {
	return WithTrustedProxies(&TrustedProxyConfig{
		TrustXForwardedProto: true,
		TrustXForwardedHost:  true,
	})
}

// WithLogger sets up the logger used by the guard. By default logging is
// disabled. Adapters for logrus, zap and zerolog are provided.
func WithLogger(logger Logger) Option {
	return func(g *Guard) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		g.logger = logger
		return nil
	}
}

// WithMetrics sets up the metrics sink used by the guard. By default
// metrics are disabled.
func WithMetrics(metrics Metrics) Option {
	return func(g *Guard) error {
		if metrics == nil {
			return errors.New("metrics must not be nil")
		}
		g.metrics = metrics
		return nil
	}
}

// WithTracer sets up the tracer used by the guard. By default tracing is
// disabled.
func WithTracer(tracer Tracer) Option {
	return func(g *Guard) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		g.tracer = tracer
		return nil
	}
}
