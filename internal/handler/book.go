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

// CatalogAPI is the read/create side of the book catalog.
type CatalogAPI interface {
	CreateBook(ctx context.Context, actor service.Identity, in service.BookInput) (uint64, error)
	GetBook(ctx context.Context, id uint64) (*model.Book, error)
	ListDisplayable(ctx context.Context, actor service.Identity, p service.Page) (service.PageResult[model.Book], error)
	ListOwned(ctx context.Context, actor service.Identity, p service.Page) (service.PageResult[model.Book], error)
	ListBorrowed(ctx context.Context, actor service.Identity, p service.Page) (service.PageResult[model.BorrowedBook], error)
	ListReturned(ctx context.Context, actor service.Identity, p service.Page) (service.PageResult[model.BorrowedBook], error)
}

// LendingAPI covers the state transitions of a book.
type LendingAPI interface {
	Borrow(ctx context.Context, bookID uint64, actor service.Identity) (uint64, error)
	ReturnBorrowed(ctx context.Context, bookID uint64, actor service.Identity) (uint64, error)
	ApproveReturn(ctx context.Context, bookID uint64, actor service.Identity) (uint64, error)
	ToggleShareable(ctx context.Context, bookID uint64, actor service.Identity) (uint64, error)
	ToggleArchived(ctx context.Context, bookID uint64, actor service.Identity) (uint64, error)
}

type BookHandler struct {
	Catalog CatalogAPI
	Lending LendingAPI
}

func NewBookHandler(catalog CatalogAPI, lending LendingAPI) *BookHandler {
	return &BookHandler{Catalog: catalog, Lending: lending}
}

// ----- DTOs -----

type bookResp struct {
	ID         uint64 `json:"id"`
	OwnerID    uint64 `json:"ownerId"`
	Title      string `json:"title"`
	AuthorName string `json:"authorName"`
	ISBN       string `json:"isbn"`
	Synopsis   string `json:"synopsis"`
	Archived   bool   `json:"archived"`
	Shareable  bool   `json:"shareable"`
}

type borrowedResp struct {
	RecordID       uint64 `json:"recordId"`
	BookID         uint64 `json:"bookId"`
	Title          string `json:"title"`
	AuthorName     string `json:"authorName"`
	ISBN           string `json:"isbn"`
	Returned       bool   `json:"returned"`
	ReturnApproved bool   `json:"returnApproved"`
}

func toBookResp(b model.Book) bookResp {
	return bookResp{
		ID: b.ID, OwnerID: b.OwnerID, Title: b.Title, AuthorName: b.AuthorName,
		ISBN: b.ISBN, Synopsis: b.Synopsis, Archived: b.Archived, Shareable: b.Shareable,
	}
}

func toBorrowedResp(b model.BorrowedBook) borrowedResp {
	return borrowedResp{
		RecordID: b.RecordID, BookID: b.BookID, Title: b.Title, AuthorName: b.AuthorName,
		ISBN: b.ISBN, Returned: b.Returned, ReturnApproved: b.ReturnApproved,
	}
}

func mapPage[T, U any](p service.PageResult[T], f func(T) U) service.PageResult[U] {
	out := service.PageResult[U]{
		Content:       make([]U, 0, len(p.Content)),
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		First:         p.First,
		Last:          p.Last,
	}
	for _, v := range p.Content {
		out.Content = append(out.Content, f(v))
	}
	return out
}

// Create adds a book owned by the caller.
func (h *BookHandler) Create(c echo.Context) error {
	id, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	var req service.BookInput
	if err := c.Bind(&req); err != nil {
		return writeError(c, badBody())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bookID, err := h.Catalog.CreateBook(ctx, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": bookID})
}

func (h *BookHandler) Get(c echo.Context) error {
	bookID, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Catalog.GetBook(ctx, bookID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookResp(*b))
}

// List returns books other members may borrow.
func (h *BookHandler) List(c echo.Context) error {
	return h.listBooks(c, h.Catalog.ListDisplayable)
}

func (h *BookHandler) ListOwned(c echo.Context) error {
	return h.listBooks(c, h.Catalog.ListOwned)
}

func (h *BookHandler) ListBorrowed(c echo.Context) error {
	return h.listBorrowed(c, h.Catalog.ListBorrowed)
}

func (h *BookHandler) ListReturned(c echo.Context) error {
	return h.listBorrowed(c, h.Catalog.ListReturned)
}

type bookLister func(context.Context, service.Identity, service.Page) (service.PageResult[model.Book], error)
type borrowLister func(context.Context, service.Identity, service.Page) (service.PageResult[model.BorrowedBook], error)

func (h *BookHandler) listBooks(c echo.Context, list bookLister) error {
	id, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	p, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := list(ctx, id, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, mapPage(res, toBookResp))
}

func (h *BookHandler) listBorrowed(c echo.Context, list borrowLister) error {
	id, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	p, err := pageQuery(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := list(ctx, id, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, mapPage(res, toBorrowedResp))
}

func (h *BookHandler) ToggleShareable(c echo.Context) error {
	return h.transition(c, http.StatusOK, h.Lending.ToggleShareable)
}

func (h *BookHandler) ToggleArchived(c echo.Context) error {
	return h.transition(c, http.StatusOK, h.Lending.ToggleArchived)
}

// Borrow opens a borrow record; the response carries its id.
func (h *BookHandler) Borrow(c echo.Context) error {
	return h.transition(c, http.StatusCreated, h.Lending.Borrow)
}

func (h *BookHandler) Return(c echo.Context) error {
	return h.transition(c, http.StatusOK, h.Lending.ReturnBorrowed)
}

func (h *BookHandler) ApproveReturn(c echo.Context) error {
	return h.transition(c, http.StatusOK, h.Lending.ApproveReturn)
}

type lendingOp func(context.Context, uint64, service.Identity) (uint64, error)

func (h *BookHandler) transition(c echo.Context, status int, op lendingOp) error {
	id, err := actor(c)
	if err != nil {
		return writeError(c, err)
	}
	bookID, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := op(ctx, bookID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status, echo.Map{"id": out})
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Fields: map[string]string{"id": "must be a positive integer"}}
	}
	return id, nil
}

// pageQuery reads ?page=&size=. Missing values fall back to the defaults;
// out-of-range sizes are clamped by the service.
func pageQuery(c echo.Context) (service.Page, error) {
	p := service.Page{Number: 0, Size: service.DefaultPageSize}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, &service.ValidationError{Fields: map[string]string{"page": "must be a non-negative integer"}}
		}
		p.Number = n
	}
	if v := c.QueryParam("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, &service.ValidationError{Fields: map[string]string{"size": "must be a positive integer"}}
		}
		p.Size = n
	}
	return p, nil
}
