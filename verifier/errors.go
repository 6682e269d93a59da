package verifier

import "errors"

// Verification failures are terminal for the request's authentication
// attempt. Callers compare with errors.Is; every error returned by
// Verifier.Verify wraps exactly one of these sentinels, except key func
// failures which are surfaced as-is.
var (
	// ErrMalformedToken is returned when the token cannot be parsed as a
	// signed JWT at all.
	ErrMalformedToken = errors.New("malformed token")

	// ErrSignatureInvalid is returned when the token signature does not
	// verify against the trusted key material.
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrExpired is returned when the token "exp" claim is in the past,
	// beyond the allowed clock skew.
	ErrExpired = errors.New("token expired")

	// ErrNotYetValid is returned when the token "nbf" claim is in the
	// future, beyond the allowed clock skew.
	ErrNotYetValid = errors.New("token not yet valid")

	// ErrIssuerMismatch is returned when the token "iss" claim does not
	// equal the expected issuer.
	ErrIssuerMismatch = errors.New("token issuer mismatch")

	// ErrAudienceMismatch is returned when none of the expected audiences
	// appear in the token "aud" claim.
	ErrAudienceMismatch = errors.New("token audience mismatch")

	// ErrMalformedPayload is returned when a verified token is missing a
	// required claim or carries a claim of the wrong shape.
	ErrMalformedPayload = errors.New("malformed token payload")
)
