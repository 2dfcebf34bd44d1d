package repository

import (
	"context"

	"github.com/iliyamo/book-network/internal/model"
)

// ThemeRepo provides access to the themes table.
type ThemeRepo struct{ db dbtx }

func NewThemeRepo(db dbtx) *ThemeRepo { return &ThemeRepo{db: db} }

// Create inserts the theme and sets its ID. A taken name yields
// ErrDuplicate.
func (r *ThemeRepo) Create(ctx context.Context, t *model.Theme) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO themes (name, created_by) VALUES (?,?)", t.Name, t.CreatedBy)
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
	t.ID = uint64(id)
	return nil
}

func (r *ThemeRepo) FindByID(ctx context.Context, id uint64) (*model.Theme, error) {
	var t model.Theme
	if err := r.db.GetContext(ctx, &t,
		"SELECT id, name, created_by, created_at, updated_at FROM themes WHERE id=?", id); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// List returns every theme ordered by name.
func (r *ThemeRepo) List(ctx context.Context) ([]model.Theme, error) {
	out := []model.Theme{}
	if err := r.db.SelectContext(ctx, &out,
		"SELECT id, name, created_by, created_at, updated_at FROM themes ORDER BY name, id"); err != nil {
		return nil, err
	}
	return out, nil
}

// Rename changes the name. Callers load the row first; an unchanged name
// affects no rows and is not an error.
func (r *ThemeRepo) Rename(ctx context.Context, id uint64, name string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE themes SET name=?, updated_at=UTC_TIMESTAMP() WHERE id=?", name, id)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ThemeRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "DELETE FROM themes WHERE id=?", id)
}

// deleteByID runs a single-row delete and maps zero affected rows to
// ErrNotFound.
func deleteByID(ctx context.Context, db dbtx, query string, id uint64) error {
	res, err := db.ExecContext(ctx, query, id)
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
