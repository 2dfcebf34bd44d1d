package model

import "time"

// Theme groups articles under a unique name.
type Theme struct {
	ID        uint64    `db:"id"`         // themes.id
	Name      string    `db:"name"`       // themes.name
	CreatedBy uint64    `db:"created_by"` // themes.created_by
	CreatedAt time.Time `db:"created_at"` // themes.created_at
	UpdatedAt time.Time `db:"updated_at"` // themes.updated_at
}
