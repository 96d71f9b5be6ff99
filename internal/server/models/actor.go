package models

// Actor is the identity of an authenticated staff member, resolved from a
// verified bearer token. It is opaque to the custody core: no staff
// persistence exists, the identity provider owns the accounts.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the actor may use administrative overrides such
// as the direct status update that bypasses the pickup-evidence flow.
func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}

// DisplayName returns the human-readable identity stamped on custody
// records, falling back to the email when no name claim was present.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// AuditIdentity returns the identity string written to audit records.
func (a Actor) AuditIdentity() string {
	if a.Email != "" {
		return a.Email
	}
	return a.ID
}
