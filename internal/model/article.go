package model

import "time"

// Article is a text written by a member, optionally filed under a theme.
type Article struct {
	ID        uint64    `db:"id"`         // articles.id
	ThemeID   *uint64   `db:"theme_id"`   // articles.theme_id (nullable)
	AuthorID  uint64    `db:"author_id"`  // articles.author_id
	Title     string    `db:"title"`      // articles.title
	Content   string    `db:"content"`    // articles.content
	CreatedAt time.Time `db:"created_at"` // articles.created_at
	UpdatedAt time.Time `db:"updated_at"` // articles.updated_at
}
