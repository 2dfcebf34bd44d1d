package repository

import (
	"context"

	"github.com/iliyamo/book-network/internal/model"
)

// FeedbackRepo provides access to the feedbacks table.
type FeedbackRepo struct{ db dbtx }

func NewFeedbackRepo(db dbtx) *FeedbackRepo { return &FeedbackRepo{db: db} }

func (r *FeedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO feedbacks (book_id, author_id, note, comment) VALUES (?,?,?,?)",
		f.BookID, f.AuthorID, f.Note, f.Comment)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}

func (r *FeedbackRepo) ListByBook(ctx context.Context, bookID uint64, limit, offset int) ([]model.Feedback, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM feedbacks WHERE book_id=?", bookID); err != nil {
		return nil, 0, err
	}
	out := []model.Feedback{}
	if err := r.db.SelectContext(ctx, &out,
		`SELECT id, book_id, author_id, note, comment, created_at FROM feedbacks
		 WHERE book_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		bookID, limit, offset); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
