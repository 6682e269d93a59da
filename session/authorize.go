package session

// Query describes an authorization check against a Claims record. Set Role,
// Permission, or both. When both are set, both must match (least-privilege
// AND semantics).
type Query struct {
	// Role must equal the claims' OrganizationRole exactly.
	Role string

	// Permission must be an element of the claims' OrganizationPermissions.
	Permission string
}

// IsZero reports whether the query asks for nothing.
func (q Query) IsZero() bool {
	return q.Role == "" && q.Permission == ""
}

// Has answers an authorization query against the claims. It is a pure
// function and never fails: role and permission concepts are organization
// scoped, so it returns false whenever the claims carry no organization
// context. An empty query also returns false since it grants nothing.
func (c *Claims) Has(q Query) bool {
	if !c.HasOrganization() {
		return false
	}
	if q.IsZero() {
		return false
	}

	if q.Role != "" && q.Role != c.OrganizationRole {
		return false
	}

	if q.Permission != "" {
		found := false
		for _, p := range c.OrganizationPermissions {
			if p == q.Permission {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}
