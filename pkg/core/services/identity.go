package services

import "github.com/handsofstluke/pantry/pkg/db"

// Identity is the verified identity of the requester, supplied explicitly by
// the authentication layer. Operations never look identity up from ambient
// state.
type Identity struct {
	UserID string
	Email  string
	Role   db.Role
}

// IsAdmin reports whether the identity carries the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == db.RoleAdmin
}
