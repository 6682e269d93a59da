package verifier

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
)

// Option is how options for the Verifier are set up.
type Option func(*Verifier)

// WithAllowedClockSkew sets the tolerance applied to the "exp" and "nbf"
// temporal checks. If this option is not used no clock skew is allowed.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Verifier) {
		v.allowedClockSkew = skew
	}
}

// WithAudience sets the audiences the token must be intended for. The token
// is accepted when its "aud" claim contains at least one of them. If this
// option is not used the audience claim is not checked.
func WithAudience(audiences ...string) Option {
	return func(v *Verifier) {
		v.audiences = audiences
	}
}

// WithSignatureAlgorithm sets the algorithm used when the key func returns
// a single key rather than a jwk.Set. Required in that case; ignored when a
// key set is returned.
func WithSignatureAlgorithm(alg jwa.SignatureAlgorithm) Option {
	return func(v *Verifier) {
		v.algorithm = alg
	}
}

// WithClock overrides the time source used for temporal checks. Intended
// for tests.
func WithClock(clock func() time.Time) Option {
	return func(v *Verifier) {
		if clock != nil {
			v.clock = clock
		}
	}
}
