package service

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/iliyamo/book-network/internal/model"
	"github.com/iliyamo/book-network/internal/repository"
)

// BookInput is the form for adding a book to the catalog.
type BookInput struct {
	Title      string `json:"title"`
	AuthorName string `json:"authorName"`
	ISBN       string `json:"isbn"`
	Synopsis   string `json:"synopsis"`
	Shareable  bool   `json:"shareable"`
}

func (in BookInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.AuthorName, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.ISBN, validation.Required, validation.Length(10, 17), is.ISBN),
		validation.Field(&in.Synopsis, validation.Length(0, 2000)),
	)
}

// CatalogService creates and lists books and the borrow history around
// them.
type CatalogService struct {
	tx repository.TxManager
}

func NewCatalogService(tx repository.TxManager) *CatalogService {
	return &CatalogService{tx: tx}
}

// CreateBook adds a book owned by actor and returns its id.
func (s *CatalogService) CreateBook(ctx context.Context, actor Identity, in BookInput) (uint64, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Synopsis = strings.TrimSpace(in.Synopsis)
	if err := validationFailed(in.Validate()); err != nil {
		return 0, err
	}
	creator := actor.UserID
	b := &model.Book{
		OwnerID:    actor.UserID,
		Title:      in.Title,
		AuthorName: in.AuthorName,
		ISBN:       in.ISBN,
		Synopsis:   in.Synopsis,
		Shareable:  in.Shareable,
		CreatedBy:  &creator,
	}
	if err := s.tx.Repos().Books().Create(ctx, b); err != nil {
		return 0, internal("create book", err)
	}
	return b.ID, nil
}

// GetBook returns ErrNotFound for an unknown id.
func (s *CatalogService) GetBook(ctx context.Context, id uint64) (*model.Book, error) {
	b, err := s.tx.Repos().Books().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internal("load book", err)
	}
	return b, nil
}

// ListDisplayable lists books actor could borrow: shareable, not
// archived and owned by someone else.
func (s *CatalogService) ListDisplayable(ctx context.Context, actor Identity, p Page) (PageResult[model.Book], error) {
	p = p.normalize()
	books, total, err := s.tx.Repos().Books().ListDisplayable(ctx, actor.UserID, p.Size, p.offset())
	if err != nil {
		return PageResult[model.Book]{}, internal("list books", err)
	}
	return newPageResult(books, total, p), nil
}

// ListOwned lists actor's own books regardless of flags.
func (s *CatalogService) ListOwned(ctx context.Context, actor Identity, p Page) (PageResult[model.Book], error) {
	p = p.normalize()
	books, total, err := s.tx.Repos().Books().ListByOwner(ctx, actor.UserID, p.Size, p.offset())
	if err != nil {
		return PageResult[model.Book]{}, internal("list owned books", err)
	}
	return newPageResult(books, total, p), nil
}

// ListBorrowed lists every borrow record of actor.
func (s *CatalogService) ListBorrowed(ctx context.Context, actor Identity, p Page) (PageResult[model.BorrowedBook], error) {
	p = p.normalize()
	rows, total, err := s.tx.Repos().Borrows().ListByBorrower(ctx, actor.UserID, p.Size, p.offset())
	if err != nil {
		return PageResult[model.BorrowedBook]{}, internal("list borrowed books", err)
	}
	return newPageResult(rows, total, p), nil
}

// ListReturned lists returned borrow records of books actor owns, both
// approved and awaiting approval.
func (s *CatalogService) ListReturned(ctx context.Context, actor Identity, p Page) (PageResult[model.BorrowedBook], error) {
	p = p.normalize()
	rows, total, err := s.tx.Repos().Borrows().ListReturnedToOwner(ctx, actor.UserID, p.Size, p.offset())
	if err != nil {
		return PageResult[model.BorrowedBook]{}, internal("list returned books", err)
	}
	return newPageResult(rows, total, p), nil
}
