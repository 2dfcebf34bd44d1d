package model

import (
	"strings"
	"time"
)

// DefaultRole is the role every registered user receives.
const DefaultRole = "USER"

// User represents an application user record as stored in the
// `users` table.  Role names are not a column; they are loaded from
// `user_roles` by the repository and attached as an immutable slice.
//
// Fields:
//	ID             – primary key identifier of the user.
//	Email          – unique, lower-cased email used as the login name.
//	PasswordHash   – bcrypt hashed password.
//	FirstName      – given name.
//	LastName       – family name.
//	AccountLocked  – locked accounts cannot authenticate.
//	Enabled        – false until the activation code is consumed.
//	CreatedBy      – acting user id for the insert (null for self sign-up).
//	LastModifiedBy – acting user id for the last update.
//	Roles          – role names, never empty after registration.
type User struct {
	ID             uint64    `db:"id"`               // users.id
	Email          string    `db:"email"`            // users.email
	PasswordHash   string    `db:"password_hash"`    // users.password_hash
	FirstName      string    `db:"first_name"`       // users.first_name
	LastName       string    `db:"last_name"`        // users.last_name
	AccountLocked  bool      `db:"account_locked"`   // users.account_locked
	Enabled        bool      `db:"enabled"`          // users.enabled
	CreatedBy      *uint64   `db:"created_by"`       // users.created_by (nullable)
	LastModifiedBy *uint64   `db:"last_modified_by"` // users.last_modified_by (nullable)
	CreatedAt      time.Time `db:"created_at"`       // users.created_at
	UpdatedAt      time.Time `db:"updated_at"`       // users.updated_at
	Roles          []string  `db:"-"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasRole reports whether name is among the user's roles.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Role represents a row in the `roles` table.
type Role struct {
	ID   uint64 `db:"id"`   // roles.id
	Name string `db:"name"` // roles.name
}
