package repository

import (
	"context"
	"time"

	"github.com/iliyamo/book-network/internal/model"
)

// ActivationTokenRepo persists activation codes in activation_tokens.
// Timestamps are written by the caller so that expiry follows the
// injected clock rather than the database clock.
type ActivationTokenRepo struct{ db dbtx }

func NewActivationTokenRepo(db dbtx) *ActivationTokenRepo { return &ActivationTokenRepo{db: db} }

// Create inserts a token row and sets its ID.
func (r *ActivationTokenRepo) Create(ctx context.Context, t *model.ActivationToken) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO activation_tokens (code, user_id, created_at, expires_at) VALUES (?,?,?,?)",
		t.Code, t.UserID, t.CreatedAt.UTC(), t.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// FindPendingByCode returns the most recent unconsumed token with code.
// FOR UPDATE serializes concurrent activations of the same code; outside
// a transaction the lock is released immediately.
func (r *ActivationTokenRepo) FindPendingByCode(ctx context.Context, code string) (*model.ActivationToken, error) {
	var t model.ActivationToken
	err := r.db.GetContext(ctx, &t,
		`SELECT id, code, user_id, created_at, expires_at, validated_at
		 FROM activation_tokens
		 WHERE code=? AND validated_at IS NULL
		 ORDER BY id DESC LIMIT 1 FOR UPDATE`, code)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// CodeInUse reports whether an unconsumed token already uses code.
// Expired tokens count: they stay pending and FindPendingByCode still
// resolves them to their owner.
func (r *ActivationTokenRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM activation_tokens
		 WHERE code=? AND validated_at IS NULL`, code)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkValidated sets validated_at once. A token that was already
// consumed yields ErrNotFound.
func (r *ActivationTokenRepo) MarkValidated(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE activation_tokens SET validated_at=? WHERE id=? AND validated_at IS NULL", at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
