package verifier

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionkit/go-session-guard/session"
)

const (
	testIssuer   = "https://sessions.example.com"
	testAudience = "https://api.example.com"
	testSubject  = "user_2b9XKFs"
	testSession  = "sess_9dJQm1"
)

func symmetricKey(t *testing.T, secret, kid string) jwk.Key {
	t.Helper()

	key, err := jwk.FromRaw([]byte(secret))
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.HS256))

	return key
}

func keySetOf(t *testing.T, keys ...jwk.Key) jwk.Set {
	t.Helper()

	set := jwk.NewSet()
	for _, key := range keys {
		require.NoError(t, set.AddKey(key))
	}
	return set
}

func keyFuncFor(keys any) KeyFunc {
	return func(context.Context) (any, error) {
		return keys, nil
	}
}

// signToken builds and signs a token with sensible defaults; mutate tweaks
// the builder before signing.
func signToken(t *testing.T, key jwk.Key, mutate func(*jwt.Builder)) string {
	t.Helper()

	builder := jwt.NewBuilder().
		Issuer(testIssuer).
		Subject(testSubject).
		Audience([]string{testAudience}).
		Expiration(time.Now().Add(time.Hour)).
		Claim(SessionIDClaim, testSession)

	if mutate != nil {
		mutate(builder)
	}

	token, err := builder.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, key))
	require.NoError(t, err)

	return string(signed)
}

func TestVerifier_Verify(t *testing.T) {
	signingKey := symmetricKey(t, "your-256-bit-secret-is-just-enough", "key_1")
	wrongKey := symmetricKey(t, "a-completely-different-256-bit-key", "key_1")
	keys := keySetOf(t, signingKey)

	testCases := []struct {
		name          string
		token         string
		options       []Option
		expectedError error
		check         func(*testing.T, *session.Claims)
	}{
		{
			name:  "it verifies a token and extracts the claims record",
			token: signToken(t, signingKey, nil),
			check: func(t *testing.T, claims *session.Claims) {
				assert.Equal(t, testSubject, claims.UserID)
				assert.Equal(t, testSession, claims.SessionID)
				assert.False(t, claims.HasOrganization())
				assert.Equal(t, testIssuer, claims.Raw["iss"])
			},
		},
		{
			name: "it extracts organization context when present",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.Claim(OrganizationIDClaim, "org_1").
					Claim(OrganizationRoleClaim, "org:admin").
					Claim(OrganizationPermissionsClaim, []string{"org:billing:read"})
			}),
			check: func(t *testing.T, claims *session.Claims) {
				assert.Equal(t, "org_1", claims.OrganizationID)
				assert.Equal(t, "org:admin", claims.OrganizationRole)
				if diff := cmp.Diff([]string{"org:billing:read"}, claims.OrganizationPermissions); diff != "" {
					t.Errorf("permissions mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "it extracts the impersonation actor",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.Claim(ActorClaim, map[string]any{"sub": "user_admin"})
			}),
			check: func(t *testing.T, claims *session.Claims) {
				assert.Equal(t, "user_admin", claims.Actor)
			},
		},
		{
			name:          "it rejects a malformed token",
			token:         "not-a-jwt",
			expectedError: ErrMalformedToken,
		},
		{
			name:          "it rejects an empty token",
			token:         "",
			expectedError: ErrMalformedToken,
		},
		{
			name: "it rejects an expired token",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.Expiration(time.Unix(1666622607, 0))
			}),
			options:       []Option{WithClock(func() time.Time { return time.Unix(1666622700, 0) })},
			expectedError: ErrExpired,
		},
		{
			name: "it reports expiry before checking the signature",
			token: signToken(t, wrongKey, func(b *jwt.Builder) {
				b.Expiration(time.Unix(1666622607, 0))
			}),
			options:       []Option{WithClock(func() time.Time { return time.Unix(1666622700, 0) })},
			expectedError: ErrExpired,
		},
		{
			name: "it accepts a just-expired token within the allowed clock skew",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.Expiration(time.Unix(1666622607, 0))
			}),
			options: []Option{
				WithClock(func() time.Time { return time.Unix(1666622630, 0) }),
				WithAllowedClockSkew(time.Minute),
			},
		},
		{
			name: "it rejects a token that is not yet valid",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.NotBefore(time.Now().Add(time.Hour))
			}),
			expectedError: ErrNotYetValid,
		},
		{
			name: "it accepts a not-yet-valid token within the allowed clock skew",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.NotBefore(time.Unix(1666622630, 0))
			}),
			options: []Option{
				WithClock(func() time.Time { return time.Unix(1666622607, 0) }),
				WithAllowedClockSkew(time.Minute),
			},
		},
		{
			name:          "it rejects a token signed with the wrong key",
			token:         signToken(t, wrongKey, nil),
			expectedError: ErrSignatureInvalid,
		},
		{
			name: "it rejects a token from another issuer",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.Issuer("https://evil.example.com")
			}),
			expectedError: ErrIssuerMismatch,
		},
		{
			name: "it rejects a token for another audience",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.Audience([]string{"https://other-api.example.com"})
			}),
			options:       []Option{WithAudience(testAudience)},
			expectedError: ErrAudienceMismatch,
		},
		{
			name: "it accepts a token carrying one of several expected audiences",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.Audience([]string{testAudience, "https://second.example.com"})
			}),
			options: []Option{WithAudience("https://second.example.com")},
		},
		{
			name: "it rejects a permissions claim of the wrong shape",
			token: signToken(t, signingKey, func(b *jwt.Builder) {
				b.Claim(OrganizationIDClaim, "org_1").
					Claim(OrganizationPermissionsClaim, "org:billing:read")
			}),
			expectedError: ErrMalformedPayload,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			v, err := New(keyFuncFor(keys), testIssuer, testCase.options...)
			require.NoError(t, err)

			claims, err := v.Verify(context.Background(), testCase.token)

			if testCase.expectedError != nil {
				assert.ErrorIs(t, err, testCase.expectedError)
				assert.Nil(t, claims)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, claims)
			if testCase.check != nil {
				testCase.check(t, claims)
			}
		})
	}
}

func TestVerifier_Verify_MissingSessionID(t *testing.T) {
	signingKey := symmetricKey(t, "your-256-bit-secret-is-just-enough", "key_1")

	token, err := jwt.NewBuilder().
		Issuer(testIssuer).
		Subject(testSubject).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, signingKey))
	require.NoError(t, err)

	v, err := New(keyFuncFor(keySetOf(t, signingKey)), testIssuer)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), string(signed))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestVerifier_Verify_RSAKeySet(t *testing.T) {
	rawKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privateKey, err := jwk.FromRaw(rawKey)
	require.NoError(t, err)
	require.NoError(t, privateKey.Set(jwk.KeyIDKey, "rsa_1"))
	require.NoError(t, privateKey.Set(jwk.AlgorithmKey, jwa.RS256))

	publicKey, err := privateKey.PublicKey()
	require.NoError(t, err)

	token, err := jwt.NewBuilder().
		Issuer(testIssuer).
		Subject(testSubject).
		Expiration(time.Now().Add(time.Hour)).
		Claim(SessionIDClaim, testSession).
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, privateKey))
	require.NoError(t, err)

	v, err := New(keyFuncFor(keySetOf(t, publicKey)), testIssuer)
	require.NoError(t, err)

	claims, err := v.Verify(context.Background(), string(signed))
	require.NoError(t, err)
	assert.Equal(t, testSubject, claims.UserID)
	assert.Equal(t, testSession, claims.SessionID)
}

func TestVerifier_Verify_KeyFuncError(t *testing.T) {
	keyFuncErr := errors.New("key func error message")
	v, err := New(func(context.Context) (any, error) {
		return nil, keyFuncErr
	}, testIssuer)
	require.NoError(t, err)

	signingKey := symmetricKey(t, "your-256-bit-secret-is-just-enough", "key_1")
	_, err = v.Verify(context.Background(), signToken(t, signingKey, nil))
	assert.ErrorIs(t, err, keyFuncErr)
}

func TestVerifier_Verify_SingleKeyNeedsAlgorithm(t *testing.T) {
	v, err := New(keyFuncFor([]byte("your-256-bit-secret-is-just-enough")), testIssuer)
	require.NoError(t, err)

	signingKey := symmetricKey(t, "your-256-bit-secret-is-just-enough", "key_1")
	_, err = v.Verify(context.Background(), signToken(t, signingKey, nil))
	assert.ErrorContains(t, err, "signature algorithm is required")

	v, err = New(
		keyFuncFor([]byte("your-256-bit-secret-is-just-enough")),
		testIssuer,
		WithSignatureAlgorithm(jwa.HS256),
	)
	require.NoError(t, err)

	claims, err := v.Verify(context.Background(), signToken(t, signingKey, nil))
	require.NoError(t, err)
	assert.Equal(t, testSubject, claims.UserID)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, testIssuer)
	assert.EqualError(t, err, "keyFunc is required but was nil")

	_, err = New(keyFuncFor(jwk.NewSet()), "")
	assert.EqualError(t, err, "issuer is required but was empty")
}
