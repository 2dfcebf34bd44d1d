package model

import "time"

// ActivationToken models a row in `activation_tokens`.  A token is a
// short numeric code mailed to the user; it belongs to exactly one user
// and is consumed at most once.
//
// Fields:
//	ID          – primary key identifier.
//	Code        – six digit activation code.
//	UserID      – owner of the token.
//	CreatedAt   – issue time.
//	ExpiresAt   – CreatedAt plus the activation TTL.
//	ValidatedAt – set once, when the code is consumed.
type ActivationToken struct {
	ID          uint64     `db:"id"`           // activation_tokens.id
	Code        string     `db:"code"`         // activation_tokens.code
	UserID      uint64     `db:"user_id"`      // activation_tokens.user_id
	CreatedAt   time.Time  `db:"created_at"`   // activation_tokens.created_at
	ExpiresAt   time.Time  `db:"expires_at"`   // activation_tokens.expires_at
	ValidatedAt *time.Time `db:"validated_at"` // activation_tokens.validated_at (nullable)
}

// Expired reports whether the token is past its expiry at now.
func (t ActivationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
