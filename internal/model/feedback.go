package model

import "time"

// Feedback is a rating with a comment left by a reader on a book.
// Note ranges from 0 to 5.
type Feedback struct {
	ID        uint64    `db:"id"`         // feedbacks.id
	BookID    uint64    `db:"book_id"`    // feedbacks.book_id
	AuthorID  uint64    `db:"author_id"`  // feedbacks.author_id
	Note      float64   `db:"note"`       // feedbacks.note
	Comment   string    `db:"comment"`    // feedbacks.comment
	CreatedAt time.Time `db:"created_at"` // feedbacks.created_at
}
