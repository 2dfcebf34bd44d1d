package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/book-network/internal/model"
)

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx so every repository
// can run inside or outside a transaction.
type dbtx interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// UserStore is the credential store.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	AssignRoles(ctx context.Context, userID uint64, roleIDs ...uint64) error
}

// RoleStore resolves roles by name.
type RoleStore interface {
	FindByName(ctx context.Context, name string) (*model.Role, error)
}

// ActivationTokenStore persists activation codes.
type ActivationTokenStore interface {
	Create(ctx context.Context, t *model.ActivationToken) error
	// FindPendingByCode returns the newest unconsumed token carrying
	// code, locking its row when running inside a transaction.
	FindPendingByCode(ctx context.Context, code string) (*model.ActivationToken, error)
	// CodeInUse reports whether an unconsumed token carries code,
	// expired or not.
	CodeInUse(ctx context.Context, code string) (bool, error)
	MarkValidated(ctx context.Context, id uint64, at time.Time) error
}

// BookStore is the book catalog.
type BookStore interface {
	Create(ctx context.Context, b *model.Book) error
	FindByID(ctx context.Context, id uint64) (*model.Book, error)
	// FindByIDForUpdate locks the book row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint64) (*model.Book, error)
	UpdateFlags(ctx context.Context, b *model.Book) error
	ListDisplayable(ctx context.Context, viewerID uint64, limit, offset int) ([]model.Book, int64, error)
	ListByOwner(ctx context.Context, ownerID uint64, limit, offset int) ([]model.Book, int64, error)
}

// BorrowStore is the lending ledger's persistence.
type BorrowStore interface {
	// Create returns ErrDuplicate when an open record already exists
	// for the same book and borrower.
	Create(ctx context.Context, rec *model.BorrowRecord) error
	ExistsOpen(ctx context.Context, bookID, borrowerID uint64) (bool, error)
	FindOpen(ctx context.Context, bookID, borrowerID uint64) (*model.BorrowRecord, error)
	FindAwaitingApproval(ctx context.Context, bookID uint64) (*model.BorrowRecord, error)
	Update(ctx context.Context, rec *model.BorrowRecord) error
	ListByBorrower(ctx context.Context, borrowerID uint64, limit, offset int) ([]model.BorrowedBook, int64, error)
	ListReturnedToOwner(ctx context.Context, ownerID uint64, limit, offset int) ([]model.BorrowedBook, int64, error)
}

// FeedbackStore persists book feedback.
type FeedbackStore interface {
	Create(ctx context.Context, f *model.Feedback) error
	ListByBook(ctx context.Context, bookID uint64, limit, offset int) ([]model.Feedback, int64, error)
}

// ThemeStore persists article themes.
type ThemeStore interface {
	Create(ctx context.Context, t *model.Theme) error
	FindByID(ctx context.Context, id uint64) (*model.Theme, error)
	List(ctx context.Context) ([]model.Theme, error)
	Rename(ctx context.Context, id uint64, name string) error
	Delete(ctx context.Context, id uint64) error
}

// ArticleStore persists articles.
type ArticleStore interface {
	Create(ctx context.Context, a *model.Article) error
	FindByID(ctx context.Context, id uint64) (*model.Article, error)
	List(ctx context.Context, themeID uint64, limit, offset int) ([]model.Article, int64, error)
	Update(ctx context.Context, a *model.Article) error
	Delete(ctx context.Context, id uint64) error
}

// Repos groups the stores bound to one connection or transaction.
type Repos interface {
	Users() UserStore
	Roles() RoleStore
	ActivationTokens() ActivationTokenStore
	Books() BookStore
	Borrows() BorrowStore
	Feedbacks() FeedbackStore
	Themes() ThemeStore
	Articles() ArticleStore
}

// TxManager hides transaction begin/commit/rollback from services.
type TxManager interface {
	// Repos returns stores bound to the pool, outside any transaction.
	Repos() Repos
	// WithinTx runs fn in a transaction. The transaction is committed
	// when fn returns nil and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}

type repos struct {
	users     *UserRepo
	roles     *RoleRepo
	tokens    *ActivationTokenRepo
	books     *BookRepo
	borrows   *BorrowRepo
	feedbacks *FeedbackRepo
	themes    *ThemeRepo
	articles  *ArticleRepo
}

func newRepos(db dbtx) *repos {
	return &repos{
		users:     NewUserRepo(db),
		roles:     NewRoleRepo(db),
		tokens:    NewActivationTokenRepo(db),
		books:     NewBookRepo(db),
		borrows:   NewBorrowRepo(db),
		feedbacks: NewFeedbackRepo(db),
		themes:    NewThemeRepo(db),
		articles:  NewArticleRepo(db),
	}
}

func (r *repos) Users() UserStore                       { return r.users }
func (r *repos) Roles() RoleStore                       { return r.roles }
func (r *repos) ActivationTokens() ActivationTokenStore { return r.tokens }
func (r *repos) Books() BookStore                       { return r.books }
func (r *repos) Borrows() BorrowStore                   { return r.borrows }
func (r *repos) Feedbacks() FeedbackStore               { return r.feedbacks }
func (r *repos) Themes() ThemeStore                     { return r.themes }
func (r *repos) Articles() ArticleStore                 { return r.articles }

// Store is the MySQL-backed TxManager.
type Store struct {
	db   *sqlx.DB
	pool *repos
}

// NewStore wraps db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, pool: newRepos(db)}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Repos returns stores that run outside a transaction.
func (s *Store) Repos() Repos { return s.pool }

// WithinTx begins a transaction, hands fn stores bound to it and
// commits when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(newRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
