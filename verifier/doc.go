// Package verifier validates session tokens against trusted key material
// and decodes them into session.Claims records.
//
// Verification checks, in order: token shape, temporal validity ("exp" and
// "nbf" with a configurable clock skew), signature, issuer, audience, and
// finally payload shape. Each failure mode maps to a distinct sentinel
// error so callers can tell a stale token from a forged one.
//
//	v, err := verifier.New(provider.KeyFunc, "https://iss.example.com",
//		verifier.WithAudience("https://api.example.com"),
//		verifier.WithAllowedClockSkew(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	claims, err := v.Verify(ctx, token)
package verifier
