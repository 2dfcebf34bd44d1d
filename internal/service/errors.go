// Package service holds the business rules of the book network: account
// registration and activation, access tokens, and the lending ledger.
// Handlers translate the sentinel errors below into HTTP responses.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/book-network/internal/model"
)

var (
	// ErrNotFound is returned when a user, book, token or borrow record
	// does not exist. Callers must not learn why.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountDisabled    = errors.New("account disabled")
	// ErrInvalidToken is returned for unparseable, tampered or wrongly
	// signed access tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for access tokens and activation codes
	// past their expiry.
	ErrExpiredToken = errors.New("expired token")
	// ErrNotPermitted covers ownership, self-action and state violations.
	ErrNotPermitted = errors.New("not permitted")
	ErrValidation   = errors.New("validation failed")
	ErrEmailTaken   = errors.New("email already registered")
	// ErrInternal marks lower-layer failures. Its detail is logged and
	// never shown to clients.
	ErrInternal = errors.New("internal error")

	// ErrDefaultRoleMissing means the roles table was not seeded.
	ErrDefaultRoleMissing = fmt.Errorf("%w: role %q is not configured", ErrInternal, model.DefaultRole)
)

// notPermitted builds an ErrNotPermitted carrying a client-facing reason.
func notPermitted(reason string) error {
	return fmt.Errorf("%w: %s", ErrNotPermitted, reason)
}

// internal wraps a storage or crypto failure as ErrInternal.
func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
