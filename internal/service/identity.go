package service

import "github.com/iliyamo/book-network/internal/model"

// Identity is the authenticated caller attached to a request. Roles are
// fixed when the identity is built and cannot be changed afterwards.
type Identity struct {
	UserID   uint64
	Email    string
	FullName string
	roles    []string
}

// NewIdentity snapshots u.
func NewIdentity(u *model.User) Identity {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return Identity{UserID: u.ID, Email: u.Email, FullName: u.FullName(), roles: roles}
}

// Roles returns a copy of the role names.
func (i Identity) Roles() []string {
	out := make([]string, len(i.roles))
	copy(out, i.roles)
	return out
}

func (i Identity) HasRole(name string) bool {
	for _, r := range i.roles {
		if r == name {
			return true
		}
	}
	return false
}
