package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/book-network/internal/model"
	"github.com/iliyamo/book-network/internal/service"
)

type ContentAPI interface {
	ListThemes(ctx context.Context) ([]model.Theme, error)
	GetTheme(ctx context.Context, id uint64) (*model.Theme, error)
	CreateTheme(ctx context.Context, actor service.Identity, in service.ThemeInput) (*model.Theme, error)
	RenameTheme(ctx context.Context, actor service.Identity, id uint64, in service.ThemeInput) (*model.Theme, error)
	DeleteTheme(ctx context.Context, actor service.Identity, id uint64) error

	ListArticles(ctx context.Context, themeID uint64, p service.Page) (service.PageResult[model.Article], error)
	GetArticle(ctx context.Context, id uint64) (*model.Article, error)
	CreateArticle(ctx context.Context, actor service.Identity, in service.ArticleInput) (*model.Article, error)
	EditArticle(ctx context.Context, actor service.Identity, id uint64, in service.ArticleInput) (*model.Article, error)
	DeleteArticle(ctx context.Context, actor service.Identity, id uint64) error
}

// ContentHandler serves themes and articles.
type ContentHandler struct {
	Content ContentAPI
}

func NewContentHandler(content ContentAPI) *ContentHandler {
	return &ContentHandler{Content: content}
}

type themeResp struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uint64    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type articleResp struct {
	ID        uint64    `json:"id"`
	ThemeID   *uint64   `json:"themeId"`
	AuthorID  uint64    `json:"authorId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toThemeResp(t model.Theme) themeResp {
	return themeResp{ID: t.ID, Name: t.Name, CreatedBy: t.CreatedBy, CreatedAt: t.CreatedAt}
}

func toArticleResp(a model.Article) articleResp {
	return articleResp{
		ID: a.ID, ThemeID: a.ThemeID, AuthorID: a.AuthorID, Title: a.Title,
		Content: a.Content, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

func (h *ContentHandler) ListThemes(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	themes, err := h.Content.ListThemes(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]themeResp, 0, len(themes))
	for _, t := range themes {
		out = append(out, toThemeResp(t))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ContentHandler) GetTheme(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Content.GetTheme(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toThemeResp(*t))
}

func (h *ContentHandler) CreateTheme(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req service.ThemeInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Content.CreateTheme(ctx, who, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toThemeResp(*t))
}

func (h *ContentHandler) RenameTheme(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req service.ThemeInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Content.RenameTheme(ctx, who, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toThemeResp(*t))
}

func (h *ContentHandler) DeleteTheme(c echo.Context) error {
	return h.remove(c, h.Content.DeleteTheme)
}

// ListArticles pages through articles, optionally narrowed by ?themeId=.
func (h *ContentHandler) ListArticles(c echo.Context) error {
	p, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	var themeID uint64
	if v := c.QueryParam("themeId"); v != "" {
		themeID, err = strconv.ParseUint(v, 10, 64)
		if err != nil || themeID == 0 {
			return writeError(c, &service.ValidationError{Fields: map[string]string{"themeId": "must be a positive integer"}})
		}
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Content.ListArticles(ctx, themeID, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, mapPage(res, toArticleResp))
}

func (h *ContentHandler) GetArticle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Content.GetArticle(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toArticleResp(*a))
}

func (h *ContentHandler) CreateArticle(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req service.ArticleInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Content.CreateArticle(ctx, who, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toArticleResp(*a))
}

func (h *ContentHandler) EditArticle(c echo.Context) error {
	who, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req service.ArticleInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Content.EditArticle(ctx, who, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toArticleResp(*a))
}

func (h *ContentHandler) DeleteArticle(c echo.Context) error {
	return h.remove(c, h.Content.DeleteArticle)
}

type removeOp func(ctx context.Context, actor service.Identity, id uint64) error

func (h *ContentHandler) remove(c echo.Context, op removeOp) error {
	who, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := op(ctx, who, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
