package model

import "time"

// Book represents a row in the `books` table.  OwnerID is a real
// foreign key to users.id; the audit columns only record who touched
// the row.
type Book struct {
	ID             uint64    `db:"id"`               // books.id
	OwnerID        uint64    `db:"owner_id"`         // books.owner_id
	Title          string    `db:"title"`            // books.title
	AuthorName     string    `db:"author_name"`      // books.author_name
	ISBN           string    `db:"isbn"`             // books.isbn
	Synopsis       string    `db:"synopsis"`         // books.synopsis
	Archived       bool      `db:"archived"`         // books.archived
	Shareable      bool      `db:"shareable"`        // books.shareable
	CreatedBy      *uint64   `db:"created_by"`       // books.created_by
	LastModifiedBy *uint64   `db:"last_modified_by"` // books.last_modified_by
	CreatedAt      time.Time `db:"created_at"`       // books.created_at
	UpdatedAt      time.Time `db:"updated_at"`       // books.updated_at
}

// Lendable reports whether borrow and return operations are allowed.
func (b Book) Lendable() bool {
	return b.Shareable && !b.Archived
}

// OwnedBy reports whether userID owns the book.
func (b Book) OwnedBy(userID uint64) bool {
	return b.OwnerID == userID
}
