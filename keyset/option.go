package keyset

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

// Option configures a Provider or CachingProvider.
type Option func(*config) error

type config struct {
	issuerURL     *url.URL
	customJWKSURI *url.URL
	client        *http.Client
	cacheTTL      time.Duration
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		client:   &http.Client{Timeout: 30 * time.Second},
		cacheTTL: 15 * time.Minute,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.issuerURL == nil && cfg.customJWKSURI == nil {
		return nil, errors.New("issuer URL is required (use WithIssuerURL)")
	}

	return cfg, nil
}

// WithIssuerURL sets the issuer whose discovery document names the JWKS
// endpoint.
func WithIssuerURL(issuerURL *url.URL) Option {
	return func(cfg *config) error {
		if issuerURL == nil {
			return errors.New("issuer URL cannot be nil")
		}
		cfg.issuerURL = issuerURL
		return nil
	}
}

// WithCustomJWKSURI sets a JWKS endpoint directly, skipping OIDC discovery.
func WithCustomJWKSURI(jwksURI *url.URL) Option {
	return func(cfg *config) error {
		if jwksURI == nil {
			return errors.New("JWKS URI cannot be nil")
		}
		cfg.customJWKSURI = jwksURI
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for discovery and key fetching.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *config) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		cfg.client = client
		return nil
	}
}

// WithCacheTTL sets how long a fetched key set is served before it must be
// replaced. Only meaningful for the CachingProvider.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cfg *config) error {
		if ttl <= 0 {
			return errors.New("cache TTL must be positive")
		}
		cfg.cacheTTL = ttl
		return nil
	}
}
