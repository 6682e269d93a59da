package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/sessionkit/go-session-guard/session"
)

// KeyFunc returns the trusted key material used to verify token signatures.
// The returned value is either a jwk.Set (key selection by "kid" is handled
// by the underlying library) or a single key, in which case the verifier
// must be configured with WithSignatureAlgorithm.
//
// Implementations are expected to be safe for concurrent use; see the
// keyset package for a caching JWKS-backed implementation.
type KeyFunc func(context.Context) (any, error)

// Verifier checks a session token's signature, temporal validity, issuer
// and audience, and decodes the payload into a session.Claims record.
//
// Verification is a pure function of the token, the trust material and the
// current time. A Verifier holds no per-request state and is safe for
// concurrent use.
type Verifier struct {
	keyFunc          KeyFunc                // Required.
	issuer           string                 // Required.
	audiences        []string               // Optional.
	algorithm        jwa.SignatureAlgorithm // Required for single-key KeyFuncs.
	allowedClockSkew time.Duration          // Optional.
	clock            func() time.Time       // Defaults to time.Now.
}

// New sets up a new Verifier with the required keyFunc and expected issuer
// as well as custom options.
func New(keyFunc KeyFunc, issuer string, opts ...Option) (*Verifier, error) {
	if keyFunc == nil {
		return nil, errors.New("keyFunc is required but was nil")
	}
	if issuer == "" {
		return nil, errors.New("issuer is required but was empty")
	}

	v := &Verifier{
		keyFunc: keyFunc,
		issuer:  issuer,
		clock:   time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Verify validates the passed in session token and returns the claims
// record it carries. The returned error wraps one of the sentinel errors
// declared in this package; an invalid or expired token never produces a
// claims record.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*session.Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	unverified, err := jwt.ParseInsecure([]byte(tokenString))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	// Temporal checks run before signature verification so that an expired
	// token always reports expiry, whoever signed it.
	if err := v.checkTemporal(unverified); err != nil {
		return nil, err
	}

	keys, err := v.keyFunc(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting the keys from the key func: %w", err)
	}

	parseOpts, err := v.parseOptions(keys)
	if err != nil {
		return nil, err
	}

	verified, err := jwt.Parse([]byte(tokenString), parseOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	if verified.Issuer() != v.issuer {
		return nil, fmt.Errorf("%w: expected %q but token specified %q", ErrIssuerMismatch, v.issuer, verified.Issuer())
	}

	if err := v.checkAudience(verified.Audience()); err != nil {
		return nil, err
	}

	return extractClaims(verified)
}

func (v *Verifier) checkTemporal(token jwt.Token) error {
	now := v.clock()

	if exp := token.Expiration(); !exp.IsZero() && now.Add(-v.allowedClockSkew).After(exp) {
		return fmt.Errorf("%w: expired at %s", ErrExpired, exp.UTC().Format(time.RFC3339))
	}

	if nbf := token.NotBefore(); !nbf.IsZero() && now.Add(v.allowedClockSkew).Before(nbf) {
		return fmt.Errorf("%w: not valid before %s", ErrNotYetValid, nbf.UTC().Format(time.RFC3339))
	}

	return nil
}

func (v *Verifier) checkAudience(tokenAudience []string) error {
	if len(v.audiences) == 0 {
		return nil
	}

	for _, expected := range v.audiences {
		for _, actual := range tokenAudience {
			if expected == actual {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: token audience %v", ErrAudienceMismatch, tokenAudience)
}

// parseOptions builds the options for the verifying parse. Validation is
// disabled there: jwt.Parse would otherwise re-check exp and nbf against
// the wall clock, ignoring the configured skew and clock source, so
// checkTemporal stays the only temporal authority.
func (v *Verifier) parseOptions(keys any) ([]jwt.ParseOption, error) {
	if set, ok := keys.(jwk.Set); ok {
		return []jwt.ParseOption{
			jwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)),
			jwt.WithValidate(false),
		}, nil
	}

	if v.algorithm == "" {
		return nil, errors.New("a signature algorithm is required when the key func does not return a jwk.Set (use WithSignatureAlgorithm)")
	}

	return []jwt.ParseOption{
		jwt.WithKey(v.algorithm, keys),
		jwt.WithValidate(false),
	}, nil
}
