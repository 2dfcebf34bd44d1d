package model

import "time"

// BorrowRecord tracks one checkout of one book by one borrower.
//
// Lifecycle: created with Returned=false and ReturnApproved=false;
// the borrower sets Returned; the book owner then sets
// ReturnApproved, after which the record is terminal.
type BorrowRecord struct {
	ID             uint64    `db:"id"`              // borrow_records.id
	BookID         uint64    `db:"book_id"`         // borrow_records.book_id
	BorrowerID     uint64    `db:"borrower_id"`     // borrow_records.borrower_id
	Returned       bool      `db:"returned"`        // borrow_records.returned
	ReturnApproved bool      `db:"return_approved"` // borrow_records.return_approved
	CreatedAt      time.Time `db:"created_at"`      // borrow_records.created_at
	UpdatedAt      time.Time `db:"updated_at"`      // borrow_records.updated_at
}

// BorrowedBook joins a borrow record with the book fields shown in
// borrowed/returned listings.
type BorrowedBook struct {
	RecordID       uint64 `db:"record_id"`
	BookID         uint64 `db:"book_id"`
	BorrowerID     uint64 `db:"borrower_id"`
	Title          string `db:"title"`
	AuthorName     string `db:"author_name"`
	ISBN           string `db:"isbn"`
	Returned       bool   `db:"returned"`
	ReturnApproved bool   `db:"return_approved"`
}
