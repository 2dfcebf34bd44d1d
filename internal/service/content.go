package service

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/iliyamo/book-network/internal/model"
	"github.com/iliyamo/book-network/internal/repository"
)

// ThemeInput names a theme.
type ThemeInput struct {
	Name string `json:"name"`
}

func (in ThemeInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
	)
}

// ArticleInput is the form for writing or editing an article. ThemeID is
// optional.
type ArticleInput struct {
	ThemeID *uint64 `json:"themeId"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
}

func (in ArticleInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Content, validation.Required, validation.Length(1, 20000)),
	)
}

// ContentService manages themes and the articles filed under them. Any
// member may read and create; only the creator of a theme or the author
// of an article may change or delete it.
type ContentService struct {
	tx repository.TxManager
}

func NewContentService(tx repository.TxManager) *ContentService {
	return &ContentService{tx: tx}
}

func (s *ContentService) ListThemes(ctx context.Context) ([]model.Theme, error) {
	themes, err := s.tx.Repos().Themes().List(ctx)
	if err != nil {
		return nil, internal("list themes", err)
	}
	return themes, nil
}

func (s *ContentService) GetTheme(ctx context.Context, id uint64) (*model.Theme, error) {
	return findTheme(ctx, s.tx.Repos(), id)
}

// CreateTheme returns ErrNotPermitted when the name is taken.
func (s *ContentService) CreateTheme(ctx context.Context, actor Identity, in ThemeInput) (*model.Theme, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validationFailed(in.Validate()); err != nil {
		return nil, err
	}
	t := &model.Theme{Name: in.Name, CreatedBy: actor.UserID}
	if err := s.tx.Repos().Themes().Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, notPermitted("a theme with this name already exists")
		}
		return nil, internal("create theme", err)
	}
	return t, nil
}

func (s *ContentService) RenameTheme(ctx context.Context, actor Identity, id uint64, in ThemeInput) (*model.Theme, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validationFailed(in.Validate()); err != nil {
		return nil, err
	}
	var out *model.Theme
	err := s.tx.WithinTx(ctx, func(r repository.Repos) error {
		t, err := findTheme(ctx, r, id)
		if err != nil {
			return err
		}
		if t.CreatedBy != actor.UserID {
			return notPermitted("only the creator of a theme can rename it")
		}
		if err := r.Themes().Rename(ctx, t.ID, in.Name); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return notPermitted("a theme with this name already exists")
			}
			return internal("rename theme", err)
		}
		t.Name = in.Name
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTheme removes the theme; its articles stay, without a theme.
func (s *ContentService) DeleteTheme(ctx context.Context, actor Identity, id uint64) error {
	return s.tx.WithinTx(ctx, func(r repository.Repos) error {
		t, err := findTheme(ctx, r, id)
		if err != nil {
			return err
		}
		if t.CreatedBy != actor.UserID {
			return notPermitted("only the creator of a theme can delete it")
		}
		return deleted(r.Themes().Delete(ctx, t.ID), "delete theme")
	})
}

// ListArticles pages through articles, newest first. themeID 0 lists
// every theme.
func (s *ContentService) ListArticles(ctx context.Context, themeID uint64, p Page) (PageResult[model.Article], error) {
	p = p.normalize()
	rows, total, err := s.tx.Repos().Articles().List(ctx, themeID, p.Size, p.offset())
	if err != nil {
		return PageResult[model.Article]{}, internal("list articles", err)
	}
	return newPageResult(rows, total, p), nil
}

func (s *ContentService) GetArticle(ctx context.Context, id uint64) (*model.Article, error) {
	return findArticle(ctx, s.tx.Repos(), id)
}

func (s *ContentService) CreateArticle(ctx context.Context, actor Identity, in ArticleInput) (*model.Article, error) {
	in = in.trimmed()
	if err := validationFailed(in.Validate()); err != nil {
		return nil, err
	}
	a := &model.Article{ThemeID: in.ThemeID, AuthorID: actor.UserID, Title: in.Title, Content: in.Content}
	err := s.tx.WithinTx(ctx, func(r repository.Repos) error {
		if err := checkTheme(ctx, r, in.ThemeID); err != nil {
			return err
		}
		if err := r.Articles().Create(ctx, a); err != nil {
			return internal("create article", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ContentService) EditArticle(ctx context.Context, actor Identity, id uint64, in ArticleInput) (*model.Article, error) {
	in = in.trimmed()
	if err := validationFailed(in.Validate()); err != nil {
		return nil, err
	}
	var out *model.Article
	err := s.tx.WithinTx(ctx, func(r repository.Repos) error {
		a, err := findArticle(ctx, r, id)
		if err != nil {
			return err
		}
		if a.AuthorID != actor.UserID {
			return notPermitted("only the author of an article can edit it")
		}
		if err := checkTheme(ctx, r, in.ThemeID); err != nil {
			return err
		}
		a.ThemeID, a.Title, a.Content = in.ThemeID, in.Title, in.Content
		if err := r.Articles().Update(ctx, a); err != nil {
			return internal("update article", err)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ContentService) DeleteArticle(ctx context.Context, actor Identity, id uint64) error {
	return s.tx.WithinTx(ctx, func(r repository.Repos) error {
		a, err := findArticle(ctx, r, id)
		if err != nil {
			return err
		}
		if a.AuthorID != actor.UserID {
			return notPermitted("only the author of an article can delete it")
		}
		return deleted(r.Articles().Delete(ctx, a.ID), "delete article")
	})
}

func (in ArticleInput) trimmed() ArticleInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.ThemeID != nil && *in.ThemeID == 0 {
		in.ThemeID = nil
	}
	return in
}

func findTheme(ctx context.Context, r repository.Repos, id uint64) (*model.Theme, error) {
	t, err := r.Themes().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internal("load theme", err)
	}
	return t, nil
}

func findArticle(ctx context.Context, r repository.Repos, id uint64) (*model.Article, error) {
	a, err := r.Articles().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internal("load article", err)
	}
	return a, nil
}

// checkTheme rejects a reference to a theme that does not exist.
func checkTheme(ctx context.Context, r repository.Repos, themeID *uint64) error {
	if themeID == nil {
		return nil
	}
	_, err := findTheme(ctx, r, *themeID)
	if errors.Is(err, ErrNotFound) {
		return fieldError("themeId", "unknown theme")
	}
	return err
}

func deleted(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return internal(op, err)
	}
}
