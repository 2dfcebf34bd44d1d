package service

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/iliyamo/book-network/internal/model"
	"github.com/iliyamo/book-network/internal/repository"
)

const (
	// ActivationCodeLength is the number of decimal digits in a code.
	ActivationCodeLength = 6
	// DefaultActivationTTL bounds how long a mailed code stays usable.
	DefaultActivationTTL = 15 * time.Minute

	maxCodeAttempts = 5
)

// ExpiredActivationError is returned by Consume when the code had
// expired. A fresh code was issued to User; the caller is expected to
// deliver Code out of band.
type ExpiredActivationError struct {
	User *model.User
	Code string
}

func (e *ExpiredActivationError) Error() string {
	return "activation code expired, a new code has been issued"
}

func (e *ExpiredActivationError) Unwrap() error { return ErrExpiredToken }

// ActivationManager issues and consumes numeric activation codes.
type ActivationManager struct {
	tx     repository.TxManager
	clock  Clock
	random io.Reader
	ttl    time.Duration
}

// NewActivationManager returns a manager reading randomness from random
// (crypto/rand when nil). A non-positive ttl uses DefaultActivationTTL.
func NewActivationManager(tx repository.TxManager, clock Clock, random io.Reader, ttl time.Duration) *ActivationManager {
	if clock == nil {
		clock = SystemClock{}
	}
	if random == nil {
		random = rand.Reader
	}
	if ttl <= 0 {
		ttl = DefaultActivationTTL
	}
	return &ActivationManager{tx: tx, clock: clock, random: random, ttl: ttl}
}

// Issue stores a new code for u through r and returns it. r may be bound
// to a caller's transaction so that the code is created atomically with
// the user.
func (m *ActivationManager) Issue(ctx context.Context, r repository.Repos, u *model.User) (string, error) {
	now := m.clock.Now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := m.generateCode()
		if err != nil {
			return "", internal("generate activation code", err)
		}
		inUse, err := r.ActivationTokens().CodeInUse(ctx, code)
		if err != nil {
			return "", internal("check activation code", err)
		}
		if inUse {
			continue
		}
		t := &model.ActivationToken{
			Code:      code,
			UserID:    u.ID,
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		}
		if err := r.ActivationTokens().Create(ctx, t); err != nil {
			return "", internal("store activation code", err)
		}
		return code, nil
	}
	return "", internal("generate activation code", errors.New("no unused code found"))
}

// generateCode draws each digit uniformly from [0, 9].
func (m *ActivationManager) generateCode() (string, error) {
	ten := big.NewInt(10)
	var b strings.Builder
	b.Grow(ActivationCodeLength)
	for i := 0; i < ActivationCodeLength; i++ {
		n, err := rand.Int(m.random, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// Consume validates code and runs onValid with the owning user in the
// same transaction as the token update. An unknown or already consumed
// code yields ErrNotFound. An expired code leaves the user untouched,
// issues a replacement in a separate transaction and yields an
// *ExpiredActivationError.
func (m *ActivationManager) Consume(ctx context.Context, code string, onValid func(r repository.Repos, u *model.User) error) (*model.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fieldError("token", "cannot be blank")
	}

	var user, expired *model.User
	err := m.tx.WithinTx(ctx, func(r repository.Repos) error {
		t, err := r.ActivationTokens().FindPendingByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return internal("load activation code", err)
		}
		u, err := r.Users().FindByID(ctx, t.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return internal("load user", err)
		}

		now := m.clock.Now()
		if t.Expired(now) {
			expired = u
			return nil
		}
		if err := r.ActivationTokens().MarkValidated(ctx, t.ID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return internal("consume activation code", err)
		}
		if onValid != nil {
			if err := onValid(r, u); err != nil {
				return err
			}
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired != nil {
		var fresh string
		err := m.tx.WithinTx(ctx, func(r repository.Repos) error {
			c, err := m.Issue(ctx, r, expired)
			fresh = c
			return err
		})
		if err != nil {
			return nil, err
		}
		return nil, &ExpiredActivationError{User: expired, Code: fresh}
	}
	return user, nil
}
