// Package keyset manages the trusted signing keys a verifier checks tokens
// against. Keys are located through OIDC discovery (or a fixed JWKS URI)
// and, with the CachingProvider, cached process-wide and refreshed in the
// background so key rotation never blocks verification.
package keyset
