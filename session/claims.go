package session

// Claims is the record inserted into the request context once a session
// token has passed signature and temporal checks. It is constructed by the
// verifier package and must never be built from an unverified token.
//
// A Claims value is scoped to a single request: it is created during
// verification, consumed by the guard and the application handler, and
// discarded when the request ends. It is never persisted or shared across
// requests.
type Claims struct {
	// SessionID is the unique identifier of the active session,
	// taken from the "sid" claim.
	SessionID string

	// UserID is the unique identifier of the authenticated account,
	// taken from the "sub" claim. Never empty on a verified record.
	UserID string

	// OrganizationID is set only when the session is scoped to an
	// organization. Empty means no organization context.
	OrganizationID string

	// OrganizationRole is the role the user holds within the active
	// organization. Empty unless OrganizationID is set.
	OrganizationRole string

	// OrganizationPermissions lists the permissions granted within the
	// active organization, in token order. Nil or empty outside an
	// organization context.
	OrganizationPermissions []string

	// Actor identifies an impersonating principal, taken from the
	// "act" claim. Empty when the session is not impersonated.
	Actor string

	// Raw holds the full decoded token payload, registered and private
	// claims alike, for access to fields this struct does not model.
	Raw map[string]any
}

// HasOrganization reports whether the session carries an organization
// context. Role and permission checks are only meaningful when it does.
func (c *Claims) HasOrganization() bool {
	return c != nil && c.OrganizationID != ""
}

// HasPermission reports whether the given permission is granted within the
// active organization. It is shorthand for Has(Query{Permission: permission}).
func (c *Claims) HasPermission(permission string) bool {
	return c.Has(Query{Permission: permission})
}

// HasRole reports whether the user holds the given role within the active
// organization. It is shorthand for Has(Query{Role: role}).
func (c *Claims) HasRole(role string) bool {
	return c.Has(Query{Role: role})
}
