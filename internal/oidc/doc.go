// Package oidc fetches OIDC discovery metadata so the keyset package can
// locate an issuer's JWKS endpoint.
package oidc
