package repository

import (
	"context"

	"github.com/iliyamo/book-network/internal/model"
)

const bookColumns = `id, owner_id, title, author_name, isbn, synopsis, archived, shareable,
	created_by, last_modified_by, created_at, updated_at`

// BookRepo provides access to the books table.
type BookRepo struct{ db dbtx }

// NewBookRepo returns a BookRepo bound to db.
func NewBookRepo(db dbtx) *BookRepo { return &BookRepo{db: db} }

// Create inserts the book and sets its ID. OwnerID must be set.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO books (owner_id, title, author_name, isbn, synopsis, archived, shareable, created_by)
		 VALUES (?,?,?,?,?,?,?,?)`,
		b.OwnerID, b.Title, b.AuthorName, b.ISBN, b.Synopsis, b.Archived, b.Shareable, b.CreatedBy)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// FindByID returns ErrNotFound when no book has the id.
func (r *BookRepo) FindByID(ctx context.Context, id uint64) (*model.Book, error) {
	var b model.Book
	if err := r.db.GetContext(ctx, &b, "SELECT "+bookColumns+" FROM books WHERE id=?", id); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// FindByIDForUpdate is FindByID with a row lock. Lending operations
// call it first so that concurrent requests on one book run one after
// another.
func (r *BookRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*model.Book, error) {
	var b model.Book
	if err := r.db.GetContext(ctx, &b, "SELECT "+bookColumns+" FROM books WHERE id=? FOR UPDATE", id); err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// UpdateFlags persists the archived and shareable flags.
func (r *BookRepo) UpdateFlags(ctx context.Context, b *model.Book) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE books SET archived=?, shareable=?, last_modified_by=?, updated_at=UTC_TIMESTAMP()
		 WHERE id=?`,
		b.Archived, b.Shareable, b.LastModifiedBy, b.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 when values are unchanged; confirm the row exists.
		var one int
		if err := r.db.GetContext(ctx, &one, "SELECT 1 FROM books WHERE id=?", b.ID); err != nil {
			return notFound(err)
		}
	}
	return nil
}

// ListDisplayable returns shareable, non-archived books that the viewer
// does not own, newest first, plus the total count.
func (r *BookRepo) ListDisplayable(ctx context.Context, viewerID uint64, limit, offset int) ([]model.Book, int64, error) {
	const where = " FROM books WHERE archived=0 AND shareable=1 AND owner_id<>?"
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+where, viewerID); err != nil {
		return nil, 0, err
	}
	books := []model.Book{}
	if err := r.db.SelectContext(ctx, &books,
		"SELECT "+bookColumns+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		viewerID, limit, offset); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// ListByOwner returns every book owned by ownerID, newest first.
func (r *BookRepo) ListByOwner(ctx context.Context, ownerID uint64, limit, offset int) ([]model.Book, int64, error) {
	const where = " FROM books WHERE owner_id=?"
	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+where, ownerID); err != nil {
		return nil, 0, err
	}
	books := []model.Book{}
	if err := r.db.SelectContext(ctx, &books,
		"SELECT "+bookColumns+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		ownerID, limit, offset); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}
