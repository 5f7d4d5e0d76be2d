package models

// Identity is the per-request authentication state resolved by the identity
// guard. The zero value is anonymous; a non-zero UserID means the request
// carried a valid token. It is created fresh for every request and never
// persisted or cached.
type Identity struct {
	UserID uint
	Email  string
}

// Authenticated reports whether the request carried a verified identity.
func (i Identity) Authenticated() bool {
	return i.UserID != 0
}
