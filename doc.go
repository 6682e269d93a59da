// Package sessionguard is an HTTP boundary layer for session
// authentication. It extracts a session token from the request, verifies
// it, evaluates optional role and permission requirements, and either lets
// the request through with the session claims in the context or answers
// with a redirect or an error response.
//
//	v, _ := verifier.New(keyFunc, "https://sessions.example.com")
//	guard, _ := sessionguard.New(sessionguard.WithVerifier(v))
//
//	mux.Handle("/dashboard", guard.RequireSession(dashboard))
//	mux.Handle("/settings", guard.Protect(settings,
//		sessionguard.WithQuery(session.Query{Permission: "org:team_settings:manage"}),
//	))
//
// Verified claims are available downstream via SessionFromContext. The
// subpackages provide the building blocks: verifier checks tokens, keyset
// discovers and caches the issuer's public keys, session holds the claims
// model and authorization queries, and issuer mints short-lived tokens
// through the backend API.
package sessionguard
