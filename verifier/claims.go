package verifier

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/sessionkit/go-session-guard/session"
)

// Claim names carried by session tokens beyond the registered JWT set.
const (
	SessionIDClaim               = "sid"
	OrganizationIDClaim          = "org_id"
	OrganizationRoleClaim        = "org_role"
	OrganizationPermissionsClaim = "org_permissions"
	ActorClaim                   = "act"
)

// extractClaims maps a verified token payload into a session.Claims record.
// Missing organization fields map to absence; a missing "sub" or "sid", or a
// claim of the wrong shape, is ErrMalformedPayload.
func extractClaims(token jwt.Token) (*session.Claims, error) {
	userID := token.Subject()
	if userID == "" {
		return nil, fmt.Errorf("%w: missing required claim %q", ErrMalformedPayload, "sub")
	}

	sessionID, err := stringClaim(token, SessionIDClaim)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing required claim %q", ErrMalformedPayload, SessionIDClaim)
	}

	claims := &session.Claims{
		SessionID: sessionID,
		UserID:    userID,
		Raw:       rawClaims(token),
	}

	orgID, err := stringClaim(token, OrganizationIDClaim)
	if err != nil {
		return nil, err
	}
	if orgID != "" {
		claims.OrganizationID = orgID

		if claims.OrganizationRole, err = stringClaim(token, OrganizationRoleClaim); err != nil {
			return nil, err
		}
		if claims.OrganizationPermissions, err = stringSliceClaim(token, OrganizationPermissionsClaim); err != nil {
			return nil, err
		}
	}

	if claims.Actor, err = actorClaim(token); err != nil {
		return nil, err
	}

	return claims, nil
}

func stringClaim(token jwt.Token, name string) (string, error) {
	value, ok := token.Get(name)
	if !ok {
		return "", nil
	}

	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: claim %q is not a string", ErrMalformedPayload, name)
	}

	return s, nil
}

func stringSliceClaim(token jwt.Token, name string) ([]string, error) {
	value, ok := token.Get(name)
	if !ok {
		return nil, nil
	}

	switch typed := value.(type) {
	case []string:
		return typed, nil
	case []any:
		out := make([]string, 0, len(typed))
		for _, element := range typed {
			s, ok := element.(string)
			if !ok {
				return nil, fmt.Errorf("%w: claim %q contains a non-string element", ErrMalformedPayload, name)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: claim %q is not a string list", ErrMalformedPayload, name)
	}
}

// actorClaim reads the impersonation actor. Per RFC 8693 the "act" claim is
// an object whose "sub" member names the acting party; a bare string is
// accepted as well.
func actorClaim(token jwt.Token) (string, error) {
	value, ok := token.Get(ActorClaim)
	if !ok {
		return "", nil
	}

	switch typed := value.(type) {
	case string:
		return typed, nil
	case map[string]any:
		sub, ok := typed["sub"]
		if !ok {
			return "", nil
		}
		s, ok := sub.(string)
		if !ok {
			return "", fmt.Errorf("%w: claim %q has a non-string sub", ErrMalformedPayload, ActorClaim)
		}
		return s, nil
	default:
		return "", fmt.Errorf("%w: claim %q has an unsupported shape", ErrMalformedPayload, ActorClaim)
	}
}

// rawClaims flattens the registered and private claims into a single map so
// callers can reach fields the Claims struct does not model. Timestamps are
// represented as unix seconds, matching the wire format.
func rawClaims(token jwt.Token) map[string]any {
	raw := make(map[string]any, len(token.PrivateClaims())+7)
	for name, value := range token.PrivateClaims() {
		raw[name] = value
	}

	if iss := token.Issuer(); iss != "" {
		raw["iss"] = iss
	}
	if sub := token.Subject(); sub != "" {
		raw["sub"] = sub
	}
	if aud := token.Audience(); len(aud) > 0 {
		raw["aud"] = aud
	}
	if jti := token.JwtID(); jti != "" {
		raw["jti"] = jti
	}
	if exp := token.Expiration(); !exp.IsZero() {
		raw["exp"] = exp.Unix()
	}
	if nbf := token.NotBefore(); !nbf.IsZero() {
		raw["nbf"] = nbf.Unix()
	}
	if iat := token.IssuedAt(); !iat.IsZero() {
		raw["iat"] = iat.Unix()
	}

	return raw
}
