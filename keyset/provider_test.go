package keyset

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthority struct {
	server         *httptest.Server
	jwksFetches    atomic.Int64
	discoveryCalls atomic.Int64
}

func newFakeAuthority(t *testing.T) *fakeAuthority {
	t.Helper()

	rawKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.FromRaw(rawKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "key_1"))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))

	publicKey, err := key.PublicKey()
	require.NoError(t, err)

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(publicKey))

	jwksBody, err := json.Marshal(set)
	require.NoError(t, err)

	authority := &fakeAuthority{}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		authority.discoveryCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"issuer":"` + authority.server.URL + `","jwks_uri":"` + authority.server.URL + `/jwks.json"}`))
	})
	mux.HandleFunc("/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		authority.jwksFetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksBody)
	})

	authority.server = httptest.NewServer(mux)
	t.Cleanup(authority.server.Close)

	return authority
}

func (f *fakeAuthority) issuerURL(t *testing.T) *url.URL {
	t.Helper()

	u, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	return u
}

func TestProvider_KeyFunc(t *testing.T) {
	authority := newFakeAuthority(t)

	provider, err := NewProvider(WithIssuerURL(authority.issuerURL(t)))
	require.NoError(t, err)

	keys, err := provider.KeyFunc(context.Background())
	require.NoError(t, err)

	set, ok := keys.(jwk.Set)
	require.True(t, ok)
	assert.Equal(t, 1, set.Len())

	_, found := set.LookupKeyID("key_1")
	assert.True(t, found)

	// The plain provider fetches on every call.
	_, err = provider.KeyFunc(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), authority.jwksFetches.Load())
}

func TestProvider_KeyFunc_CustomJWKSURI(t *testing.T) {
	authority := newFakeAuthority(t)

	jwksURI, err := url.Parse(authority.server.URL + "/jwks.json")
	require.NoError(t, err)

	provider, err := NewProvider(WithCustomJWKSURI(jwksURI))
	require.NoError(t, err)

	_, err = provider.KeyFunc(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), authority.discoveryCalls.Load())
	assert.Equal(t, int64(1), authority.jwksFetches.Load())
}

func TestCachingProvider_KeyFunc(t *testing.T) {
	t.Run("it caches the key set between calls", func(t *testing.T) {
		authority := newFakeAuthority(t)

		provider, err := NewCachingProvider(
			WithIssuerURL(authority.issuerURL(t)),
			WithCacheTTL(time.Minute),
		)
		require.NoError(t, err)

		first, err := provider.KeyFunc(context.Background())
		require.NoError(t, err)

		second, err := provider.KeyFunc(context.Background())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int64(1), authority.jwksFetches.Load())
		assert.Equal(t, int64(1), authority.discoveryCalls.Load())
	})

	t.Run("it refetches after the TTL expires", func(t *testing.T) {
		authority := newFakeAuthority(t)

		provider, err := NewCachingProvider(
			WithIssuerURL(authority.issuerURL(t)),
			WithCacheTTL(10*time.Millisecond),
		)
		require.NoError(t, err)

		_, err = provider.KeyFunc(context.Background())
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		_, err = provider.KeyFunc(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), authority.jwksFetches.Load())
	})
}

func TestNewProvider_Validation(t *testing.T) {
	_, err := NewProvider()
	assert.EqualError(t, err, "issuer URL is required (use WithIssuerURL)")

	_, err = NewProvider(WithIssuerURL(nil))
	assert.EqualError(t, err, "issuer URL cannot be nil")

	_, err = NewCachingProvider(WithCacheTTL(0))
	assert.EqualError(t, err, "cache TTL must be positive")
}
