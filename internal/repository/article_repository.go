package repository

import (
	"context"

	"github.com/iliyamo/book-network/internal/model"
)

const articleColumns = "id, theme_id, author_id, title, content, created_at, updated_at"

// ArticleRepo provides access to the articles table.
type ArticleRepo struct{ db dbtx }

func NewArticleRepo(db dbtx) *ArticleRepo { return &ArticleRepo{db: db} }

func (r *ArticleRepo) Create(ctx context.Context, a *model.Article) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO articles (theme_id, author_id, title, content) VALUES (?,?,?,?)",
		a.ThemeID, a.AuthorID, a.Title, a.Content)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (r *ArticleRepo) FindByID(ctx context.Context, id uint64) (*model.Article, error) {
	var a model.Article
	if err := r.db.GetContext(ctx, &a, "SELECT "+articleColumns+" FROM articles WHERE id=?", id); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// List returns articles newest first. A zero themeID lists all themes.
func (r *ArticleRepo) List(ctx context.Context, themeID uint64, limit, offset int) ([]model.Article, int64, error) {
	where, args := " FROM articles", []interface{}{}
	if themeID != 0 {
		where += " WHERE theme_id=?"
		args = append(args, themeID)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+where, args...); err != nil {
		return nil, 0, err
	}
	out := []model.Article{}
	if err := r.db.SelectContext(ctx, &out,
		"SELECT "+articleColumns+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update rewrites theme, title and content.
func (r *ArticleRepo) Update(ctx context.Context, a *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE articles SET theme_id=?, title=?, content=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		a.ThemeID, a.Title, a.Content, a.ID)
	return err
}

func (r *ArticleRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "DELETE FROM articles WHERE id=?", id)
}
