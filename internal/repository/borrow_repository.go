package repository

import (
	"context"

	"github.com/iliyamo/book-network/internal/model"
)

const borrowColumns = "id, book_id, borrower_id, returned, return_approved, created_at, updated_at"

const borrowedBookSelect = `SELECT br.id AS record_id, br.book_id, br.borrower_id, b.title, b.author_name, b.isbn,
	br.returned, br.return_approved
	FROM borrow_records br JOIN books b ON b.id = br.book_id`

// BorrowRepo persists borrow_records. The table carries a stored
// generated column open_key, equal to 1 while returned=0 and NULL
// afterwards, with UNIQUE (book_id, borrower_id, open_key). MySQL
// allows many NULLs in a unique index, so a borrower may have any
// number of finished records but only one open record per book.
type BorrowRepo struct{ db dbtx }

// NewBorrowRepo returns a BorrowRepo bound to db.
func NewBorrowRepo(db dbtx) *BorrowRepo { return &BorrowRepo{db: db} }

// Create inserts an open borrow record and sets its ID.
func (r *BorrowRepo) Create(ctx context.Context, rec *model.BorrowRecord) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO borrow_records (book_id, borrower_id, returned, return_approved) VALUES (?,?,?,?)",
		rec.BookID, rec.BorrowerID, rec.Returned, rec.ReturnApproved)
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
	rec.ID = uint64(id)
	return nil
}

// ExistsOpen reports whether the borrower holds an unreturned copy.
func (r *BorrowRepo) ExistsOpen(ctx context.Context, bookID, borrowerID uint64) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM borrow_records WHERE book_id=? AND borrower_id=? AND returned=0",
		bookID, borrowerID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindOpen returns the borrower's unreturned record for the book.
func (r *BorrowRepo) FindOpen(ctx context.Context, bookID, borrowerID uint64) (*model.BorrowRecord, error) {
	var rec model.BorrowRecord
	err := r.db.GetContext(ctx, &rec,
		"SELECT "+borrowColumns+` FROM borrow_records
		 WHERE book_id=? AND borrower_id=? AND returned=0 LIMIT 1 FOR UPDATE`,
		bookID, borrowerID)
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// FindAwaitingApproval returns the oldest returned record of the book
// whose return has not been approved yet.
func (r *BorrowRepo) FindAwaitingApproval(ctx context.Context, bookID uint64) (*model.BorrowRecord, error) {
	var rec model.BorrowRecord
	err := r.db.GetContext(ctx, &rec,
		"SELECT "+borrowColumns+` FROM borrow_records
		 WHERE book_id=? AND returned=1 AND return_approved=0
		 ORDER BY id LIMIT 1 FOR UPDATE`,
		bookID)
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// Update persists the returned and return_approved flags.
func (r *BorrowRepo) Update(ctx context.Context, rec *model.BorrowRecord) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE borrow_records SET returned=?, return_approved=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		rec.Returned, rec.ReturnApproved, rec.ID)
	return err
}

// ListByBorrower lists every record of the borrower, newest first.
func (r *BorrowRepo) ListByBorrower(ctx context.Context, borrowerID uint64, limit, offset int) ([]model.BorrowedBook, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM borrow_records WHERE borrower_id=?", borrowerID); err != nil {
		return nil, 0, err
	}
	out := []model.BorrowedBook{}
	if err := r.db.SelectContext(ctx, &out,
		borrowedBookSelect+" WHERE br.borrower_id=? ORDER BY br.created_at DESC, br.id DESC LIMIT ? OFFSET ?",
		borrowerID, limit, offset); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListReturnedToOwner lists returned records of books owned by ownerID.
func (r *BorrowRepo) ListReturnedToOwner(ctx context.Context, ownerID uint64, limit, offset int) ([]model.BorrowedBook, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM borrow_records br JOIN books b ON b.id = br.book_id
		 WHERE b.owner_id=? AND br.returned=1`, ownerID); err != nil {
		return nil, 0, err
	}
	out := []model.BorrowedBook{}
	if err := r.db.SelectContext(ctx, &out,
		borrowedBookSelect+" WHERE b.owner_id=? AND br.returned=1 ORDER BY br.updated_at DESC, br.id DESC LIMIT ? OFFSET ?",
		ownerID, limit, offset); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
