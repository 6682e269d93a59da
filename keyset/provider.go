package keyset

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/sessionkit/go-session-guard/internal/oidc"
)

// Provider handles getting JWKS for the configured issuer and exposes
// KeyFunc, which adheres to the key func signature the verifier requires.
// It fetches on every call; most likely you will want the CachingProvider,
// which caches key material and refreshes it without blocking in-flight
// verifications.
type Provider struct {
	issuerURL     *url.URL
	customJWKSURI *url.URL
	client        *http.Client
}

// NewProvider builds and returns a new *Provider.
//
// Required options:
//   - WithIssuerURL: issuer URL used for JWKS discovery
//
// Optional options:
//   - WithCustomJWKSURI: skip discovery and fetch keys from this URI
//   - WithHTTPClient: custom HTTP client
func NewProvider(opts ...Option) (*Provider, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Provider{
		issuerURL:     cfg.issuerURL,
		customJWKSURI: cfg.customJWKSURI,
		client:        cfg.client,
	}, nil
}

// KeyFunc adheres to the key func signature the verifier requires. While it
// returns any to adhere to that signature, as long as the error is nil the
// type will be jwk.Set.
func (p *Provider) KeyFunc(ctx context.Context) (any, error) {
	jwksURI := ""
	if p.customJWKSURI != nil {
		jwksURI = p.customJWKSURI.String()
	} else {
		wkEndpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, p.client, *p.issuerURL, p.issuerURL.String())
		if err != nil {
			return nil, err
		}
		jwksURI = wkEndpoints.JWKSURI
	}

	set, err := jwk.Fetch(ctx, jwksURI, jwk.WithHTTPClient(p.client))
	if err != nil {
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}

	return set, nil
}

// CachingProvider handles getting JWKS for the configured issuer and
// caching them for cacheTTL time. Once a cached set reaches 80% of its TTL
// a background refresh is kicked off while readers keep using the previous
// set, so key rotation never blocks in-flight verifications.
type CachingProvider struct {
	provider *Provider
	cacheTTL time.Duration

	jwksURIMu sync.Mutex
	jwksURI   string

	cacheMu    sync.RWMutex
	set        jwk.Set
	expiresAt  time.Time
	refreshAt  time.Time
	refreshing atomic.Bool
	fetchMu    sync.Mutex
}

// NewCachingProvider builds and returns a new *CachingProvider. It accepts
// the same options as NewProvider plus WithCacheTTL (default 15 minutes).
func NewCachingProvider(opts ...Option) (*CachingProvider, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	cp := &CachingProvider{
		provider: &Provider{
			issuerURL:     cfg.issuerURL,
			customJWKSURI: cfg.customJWKSURI,
			client:        cfg.client,
		},
		cacheTTL: cfg.cacheTTL,
	}

	if cfg.customJWKSURI != nil {
		cp.jwksURI = cfg.customJWKSURI.String()
	}

	return cp, nil
}

// KeyFunc adheres to the key func signature the verifier requires. While it
// returns any to adhere to that signature, as long as the error is nil the
// type will be jwk.Set. Safe for concurrent use.
func (c *CachingProvider) KeyFunc(ctx context.Context) (any, error) {
	now := time.Now()

	// Fast path: serve from cache, possibly kicking off a background
	// refresh once the entry is past 80% of its TTL.
	c.cacheMu.RLock()
	set, expiresAt, refreshAt := c.set, c.expiresAt, c.refreshAt
	c.cacheMu.RUnlock()

	if set != nil && now.Before(expiresAt) {
		if now.After(refreshAt) && c.refreshing.CompareAndSwap(false, true) {
			go c.backgroundRefresh()
		}
		return set, nil
	}

	// Cache miss or expired. Only one caller fetches; the rest wait and
	// then re-check the cache.
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	c.cacheMu.RLock()
	set, expiresAt = c.set, c.expiresAt
	c.cacheMu.RUnlock()

	if set != nil && time.Now().Before(expiresAt) {
		return set, nil
	}

	fresh, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.store(fresh)
	return fresh, nil
}

func (c *CachingProvider) fetch(ctx context.Context) (jwk.Set, error) {
	jwksURI, err := c.getJWKSURI(ctx)
	if err != nil {
		return nil, err
	}

	set, err := jwk.Fetch(ctx, jwksURI, jwk.WithHTTPClient(c.provider.client))
	if err != nil {
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}

	return set, nil
}

// getJWKSURI returns the JWKS URI, discovering it on first use. A failed
// discovery is not cached, so the next call retries.
func (c *CachingProvider) getJWKSURI(ctx context.Context) (string, error) {
	c.jwksURIMu.Lock()
	defer c.jwksURIMu.Unlock()

	if c.jwksURI != "" {
		return c.jwksURI, nil
	}

	wkEndpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(
		ctx,
		c.provider.client,
		*c.provider.issuerURL,
		c.provider.issuerURL.String(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to discover JWKS URI: %w", err)
	}

	c.jwksURI = wkEndpoints.JWKSURI
	return c.jwksURI, nil
}

func (c *CachingProvider) store(set jwk.Set) {
	now := time.Now()

	c.cacheMu.Lock()
	c.set = set
	c.expiresAt = now.Add(c.cacheTTL)
	c.refreshAt = now.Add(c.cacheTTL * 4 / 5)
	c.cacheMu.Unlock()
}

// backgroundRefresh fetches a fresh key set without blocking readers. On
// failure the previous set stays in place until it expires.
func (c *CachingProvider) backgroundRefresh() {
	defer c.refreshing.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	set, err := c.fetch(ctx)
	if err != nil {
		return
	}

	c.store(set)
}
