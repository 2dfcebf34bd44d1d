package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/book-network/internal/model"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "mysql"), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var userCols = []string{"id", "email", "password_hash", "first_name", "last_name", "account_locked",
	"enabled", "created_by", "last_modified_by", "created_at", "updated_at"}

func TestUserRepoCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(q("INSERT INTO users")).
		WithArgs("alice@example.com", "hash", "Alice", "Liddell", false, false, nil).
		WillReturnResult(sqlmock.NewResult(5, 1))

	u := &model.User{Email: " Alice@Example.com", PasswordHash: "hash", FirstName: "Alice", LastName: "Liddell"}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, uint64(5), u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestUserRepoCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := NewUserRepo(db).Create(context.Background(), &model.User{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepoFindByEmailLoadsRoles(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM users WHERE email=?")).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(5, "alice@example.com", "hash", "Alice", "Liddell", false, true, nil, nil, now, now))
	mock.ExpectQuery(q("SELECT r.name FROM roles r JOIN user_roles")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("USER"))

	u, err := NewUserRepo(db).FindByEmail(context.Background(), "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), u.ID)
	assert.True(t, u.Enabled)
	assert.Equal(t, []string{"USER"}, u.Roles)
	assert.Equal(t, "Alice Liddell", u.FullName())
}

func TestUserRepoFindByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM users WHERE id=?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := NewUserRepo(db).FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepoUpdateMissingRow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("UPDATE users SET")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewUserRepo(db).Update(context.Background(), &model.User{ID: 3})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoleRepoFindByName(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("SELECT id, name FROM roles WHERE name=?")).
		WithArgs("USER").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "USER"))

	role, err := NewRoleRepo(db).FindByName(context.Background(), "USER")
	require.NoError(t, err)
	assert.Equal(t, model.Role{ID: 1, Name: "USER"}, *role)
}

func TestActivationTokenRepo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivationTokenRepo(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(q("INSERT INTO activation_tokens")).
		WithArgs("123456", uint64(5), now, now.Add(15*time.Minute)).
		WillReturnResult(sqlmock.NewResult(11, 1))
	tok := &model.ActivationToken{Code: "123456", UserID: 5, CreatedAt: now, ExpiresAt: now.Add(15 * time.Minute)}
	require.NoError(t, repo.Create(ctx, tok))
	assert.Equal(t, uint64(11), tok.ID)

	// Expired rows keep their code reserved: no expires_at filter.
	mock.ExpectQuery(q("WHERE code=? AND validated_at IS NULL") + `\s*$`).
		WithArgs("123456").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	inUse, err := repo.CodeInUse(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, inUse)

	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs("123456").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "user_id", "created_at", "expires_at", "validated_at"}).
			AddRow(11, "123456", 5, now, now.Add(15*time.Minute), nil))
	found, err := repo.FindPendingByCode(ctx, "123456")
	require.NoError(t, err)
	assert.Nil(t, found.ValidatedAt)
	assert.False(t, found.Expired(now))

	mock.ExpectExec(q("UPDATE activation_tokens SET validated_at=? WHERE id=? AND validated_at IS NULL")).
		WithArgs(now, uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkValidated(ctx, 11, now), ErrNotFound)
}

var bookCols = []string{"id", "owner_id", "title", "author_name", "isbn", "synopsis", "archived",
	"shareable", "created_by", "last_modified_by", "created_at", "updated_at"}

func TestBookRepoListDisplayable(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("SELECT COUNT(*) FROM books WHERE archived=0 AND shareable=1 AND owner_id<>?")).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(q("ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")).
		WithArgs(uint64(2), 10, 0).
		WillReturnRows(sqlmock.NewRows(bookCols).
			AddRow(1, 3, "Dune", "Herbert", "9780441013593", "", false, true, 3, nil, now, now))

	books, total, err := NewBookRepo(db).ListDisplayable(context.Background(), 2, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, books, 1)
	assert.True(t, books[0].Lendable())
	require.NotNil(t, books[0].CreatedBy)
	assert.Equal(t, uint64(3), *books[0].CreatedBy)
}

func TestBookRepoFindByIDForUpdate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM books WHERE id=? FOR UPDATE")).
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows(bookCols))

	_, err := NewBookRepo(db).FindByIDForUpdate(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBorrowRepoCreateDuplicateOpenBorrow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO borrow_records")).
		WithArgs(uint64(1), uint64(2), false, false).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-2-1' for key 'uq_borrow_open'"})

	err := NewBorrowRepo(db).Create(context.Background(), &model.BorrowRecord{BookID: 1, BorrowerID: 2})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestBorrowRepoFindAwaitingApproval(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("WHERE book_id=? AND returned=1 AND return_approved=0")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "book_id", "borrower_id", "returned", "return_approved", "created_at", "updated_at"}).
			AddRow(4, 1, 2, true, false, now, now))

	rec, err := NewBorrowRepo(db).FindAwaitingApproval(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), rec.ID)
	assert.True(t, rec.Returned)
}

func TestStoreWithinTxCommits(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO borrow_records")).WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(r Repos) error {
		return r.Borrows().Create(context.Background(), &model.BorrowRecord{BookID: 1, BorrowerID: 2})
	})
	require.NoError(t, err)
}

func TestStoreWithinTxRollsBack(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(Repos) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestThemeRepoCreateDuplicateName(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO themes (name, created_by)")).
		WithArgs("Poetry", uint64(2)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := NewThemeRepo(db).Create(context.Background(), &model.Theme{Name: "Poetry", CreatedBy: 2})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestThemeRepoDeleteMissingRow(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("DELETE FROM themes WHERE id=?")).
		WithArgs(uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewThemeRepo(db).Delete(context.Background(), 8), ErrNotFound)
}

func TestArticleRepoListByTheme(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("SELECT COUNT(*) FROM articles WHERE theme_id=?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(q("FROM articles WHERE theme_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")).
		WithArgs(uint64(3), 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "theme_id", "author_id", "title", "content", "created_at", "updated_at"}).
			AddRow(1, 3, 2, "Old", "text", now, now))

	rows, total, err := NewArticleRepo(db).List(context.Background(), 3, 10, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 11, total)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ThemeID)
	assert.Equal(t, uint64(3), *rows[0].ThemeID)
}

func TestArticleRepoListAllThemes(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("SELECT COUNT(*) FROM articles") + `\s*$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(q("FROM articles ORDER BY created_at DESC")).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "theme_id", "author_id", "title", "content", "created_at", "updated_at"}))

	rows, total, err := NewArticleRepo(db).List(context.Background(), 0, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
}
