// Package session defines the claims record produced by token verification
// and the authorization evaluator that answers role and permission queries
// against it.
//
// A Claims value represents one verified session token for one request.
// The zero value is not meaningful; records are produced by the verifier
// package after signature and temporal checks have passed.
package session
