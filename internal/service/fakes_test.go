package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/book-network/internal/model"
	"github.com/iliyamo/book-network/internal/repository"
)

// memStore is an in-memory repository.TxManager. Transactions are
// serialized and rolled back by restoring a snapshot, which mirrors the
// row lock every ledger operation takes on its book.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	d    memData

	// hideOpenBorrows makes ExistsOpen report false so that Create has to
	// reject the second open borrow, as the unique key does in MySQL.
	hideOpenBorrows bool
}

type memData struct {
	nextID    uint64
	users     map[uint64]model.User
	roles     map[string]model.Role
	userRoles map[uint64][]uint64
	tokens    map[uint64]model.ActivationToken
	books     map[uint64]model.Book
	borrows   map[uint64]model.BorrowRecord
	feedbacks map[uint64]model.Feedback
	themes    map[uint64]model.Theme
	articles  map[uint64]model.Article
}

func newMemStore(seedDefaultRole bool) *memStore {
	s := &memStore{d: memData{
		users:     map[uint64]model.User{},
		roles:     map[string]model.Role{},
		userRoles: map[uint64][]uint64{},
		tokens:    map[uint64]model.ActivationToken{},
		books:     map[uint64]model.Book{},
		borrows:   map[uint64]model.BorrowRecord{},
		feedbacks: map[uint64]model.Feedback{},
		themes:    map[uint64]model.Theme{},
		articles:  map[uint64]model.Article{},
	}}
	if seedDefaultRole {
		s.d.nextID++
		s.d.roles[model.DefaultRole] = model.Role{ID: s.d.nextID, Name: model.DefaultRole}
	}
	return s
}

func (d memData) clone() memData {
	c := d
	c.users = cloneMap(d.users)
	c.roles = cloneMap(d.roles)
	c.userRoles = make(map[uint64][]uint64, len(d.userRoles))
	for k, v := range d.userRoles {
		c.userRoles[k] = append([]uint64(nil), v...)
	}
	c.tokens = cloneMap(d.tokens)
	c.books = cloneMap(d.books)
	c.borrows = cloneMap(d.borrows)
	c.feedbacks = cloneMap(d.feedbacks)
	c.themes = cloneMap(d.themes)
	c.articles = cloneMap(d.articles)
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) id() uint64 {
	s.d.nextID++
	return s.d.nextID
}

func (s *memStore) Repos() repository.Repos { return memRepos{s} }

func (s *memStore) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	snapshot := s.d.clone()
	s.mu.Unlock()
	if err := fn(memRepos{s}); err != nil {
		s.mu.Lock()
		s.d = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

type memRepos struct{ s *memStore }

func (r memRepos) Users() repository.UserStore                       { return memUsers{r.s} }
func (r memRepos) Roles() repository.RoleStore                       { return memRoles{r.s} }
func (r memRepos) ActivationTokens() repository.ActivationTokenStore { return memTokens{r.s} }
func (r memRepos) Books() repository.BookStore                       { return memBooks{r.s} }
func (r memRepos) Borrows() repository.BorrowStore                   { return memBorrows{r.s} }
func (r memRepos) Feedbacks() repository.FeedbackStore               { return memFeedbacks{r.s} }
func (r memRepos) Themes() repository.ThemeStore                     { return memThemes{r.s} }
func (r memRepos) Articles() repository.ArticleStore                 { return memArticles{r.s} }

type memUsers struct{ s *memStore }

func (m memUsers) withRoles(u model.User) *model.User {
	var names []string
	for _, rid := range m.s.d.userRoles[u.ID] {
		for _, role := range m.s.d.roles {
			if role.ID == rid {
				names = append(names, role.Name)
			}
		}
	}
	sort.Strings(names)
	u.Roles = names
	return &u
}

func (m memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.s.d.users {
		if u.Email == email {
			return m.withRoles(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memUsers) FindByID(_ context.Context, id uint64) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.withRoles(u), nil
}

func (m memUsers) Create(_ context.Context, u *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.s.d.users {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.ID = m.s.id()
	row := *u
	row.Roles = nil
	m.s.d.users[u.ID] = row
	return nil
}

func (m memUsers) Update(_ context.Context, u *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.d.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	row := *u
	row.Roles = nil
	m.s.d.users[u.ID] = row
	return nil
}

func (m memUsers) AssignRoles(_ context.Context, userID uint64, roleIDs ...uint64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, rid := range roleIDs {
		present := false
		for _, have := range m.s.d.userRoles[userID] {
			present = present || have == rid
		}
		if !present {
			m.s.d.userRoles[userID] = append(m.s.d.userRoles[userID], rid)
		}
	}
	return nil
}

type memRoles struct{ s *memStore }

func (m memRoles) FindByName(_ context.Context, name string) (*model.Role, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.d.roles[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

type memTokens struct{ s *memStore }

func (m memTokens) Create(_ context.Context, t *model.ActivationToken) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t.ID = m.s.id()
	m.s.d.tokens[t.ID] = *t
	return nil
}

func (m memTokens) FindPendingByCode(_ context.Context, code string) (*model.ActivationToken, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var found *model.ActivationToken
	for _, t := range m.s.d.tokens {
		if t.Code == code && t.ValidatedAt == nil && (found == nil || t.ID > found.ID) {
			t := t
			found = &t
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (m memTokens) CodeInUse(_ context.Context, code string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.d.tokens {
		if t.Code == code && t.ValidatedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (m memTokens) MarkValidated(_ context.Context, id uint64, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.d.tokens[id]
	if !ok || t.ValidatedAt != nil {
		return repository.ErrNotFound
	}
	t.ValidatedAt = &at
	m.s.d.tokens[id] = t
	return nil
}

type memBooks struct{ s *memStore }

func (m memBooks) Create(_ context.Context, b *model.Book) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b.ID = m.s.id()
	m.s.d.books[b.ID] = *b
	return nil
}

func (m memBooks) FindByID(_ context.Context, id uint64) (*model.Book, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b, ok := m.s.d.books[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (m memBooks) FindByIDForUpdate(ctx context.Context, id uint64) (*model.Book, error) {
	return m.FindByID(ctx, id)
}

func (m memBooks) UpdateFlags(_ context.Context, b *model.Book) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	row, ok := m.s.d.books[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.Archived, row.Shareable, row.LastModifiedBy = b.Archived, b.Shareable, b.LastModifiedBy
	m.s.d.books[b.ID] = row
	return nil
}

func (m memBooks) list(keep func(model.Book) bool, limit, offset int) ([]model.Book, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Book
	for _, b := range m.s.d.books {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	page, total := paginate(out, limit, offset)
	return page, total, nil
}

func (m memBooks) ListDisplayable(_ context.Context, viewerID uint64, limit, offset int) ([]model.Book, int64, error) {
	return m.list(func(b model.Book) bool { return b.Lendable() && b.OwnerID != viewerID }, limit, offset)
}

func (m memBooks) ListByOwner(_ context.Context, ownerID uint64, limit, offset int) ([]model.Book, int64, error) {
	return m.list(func(b model.Book) bool { return b.OwnerID == ownerID }, limit, offset)
}

type memBorrows struct{ s *memStore }

func (m memBorrows) Create(_ context.Context, rec *model.BorrowRecord) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.d.borrows {
		if r.BookID == rec.BookID && r.BorrowerID == rec.BorrowerID && !r.Returned {
			return repository.ErrDuplicate
		}
	}
	rec.ID = m.s.id()
	m.s.d.borrows[rec.ID] = *rec
	return nil
}

func (m memBorrows) ExistsOpen(ctx context.Context, bookID, borrowerID uint64) (bool, error) {
	if m.s.hideOpenBorrows {
		return false, nil
	}
	_, err := m.FindOpen(ctx, bookID, borrowerID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m memBorrows) FindOpen(_ context.Context, bookID, borrowerID uint64) (*model.BorrowRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.d.borrows {
		if r.BookID == bookID && r.BorrowerID == borrowerID && !r.Returned {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memBorrows) FindAwaitingApproval(_ context.Context, bookID uint64) (*model.BorrowRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var found *model.BorrowRecord
	for _, r := range m.s.d.borrows {
		if r.BookID == bookID && r.Returned && !r.ReturnApproved && (found == nil || r.ID < found.ID) {
			r := r
			found = &r
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (m memBorrows) Update(_ context.Context, rec *model.BorrowRecord) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.d.borrows[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	m.s.d.borrows[rec.ID] = *rec
	return nil
}

func (m memBorrows) joined(keep func(model.BorrowRecord, model.Book) bool, limit, offset int) ([]model.BorrowedBook, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.BorrowedBook
	for _, r := range m.s.d.borrows {
		b := m.s.d.books[r.BookID]
		if !keep(r, b) {
			continue
		}
		out = append(out, model.BorrowedBook{
			RecordID: r.ID, BookID: r.BookID, BorrowerID: r.BorrowerID,
			Title: b.Title, AuthorName: b.AuthorName, ISBN: b.ISBN,
			Returned: r.Returned, ReturnApproved: r.ReturnApproved,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID > out[j].RecordID })
	page, total := paginate(out, limit, offset)
	return page, total, nil
}

func (m memBorrows) ListByBorrower(_ context.Context, borrowerID uint64, limit, offset int) ([]model.BorrowedBook, int64, error) {
	return m.joined(func(r model.BorrowRecord, _ model.Book) bool { return r.BorrowerID == borrowerID }, limit, offset)
}

func (m memBorrows) ListReturnedToOwner(_ context.Context, ownerID uint64, limit, offset int) ([]model.BorrowedBook, int64, error) {
	return m.joined(func(r model.BorrowRecord, b model.Book) bool { return b.OwnerID == ownerID && r.Returned }, limit, offset)
}

type memFeedbacks struct{ s *memStore }

func (m memFeedbacks) Create(_ context.Context, f *model.Feedback) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	f.ID = m.s.id()
	m.s.d.feedbacks[f.ID] = *f
	return nil
}

func (m memFeedbacks) ListByBook(_ context.Context, bookID uint64, limit, offset int) ([]model.Feedback, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Feedback
	for _, f := range m.s.d.feedbacks {
		if f.BookID == bookID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	page, total := paginate(out, limit, offset)
	return page, total, nil
}

type memThemes struct{ s *memStore }

func (m memThemes) nameTaken(name string, except uint64) bool {
	for _, t := range m.s.d.themes {
		if t.ID != except && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func (m memThemes) Create(_ context.Context, t *model.Theme) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.nameTaken(t.Name, 0) {
		return repository.ErrDuplicate
	}
	t.ID = m.s.id()
	m.s.d.themes[t.ID] = *t
	return nil
}

func (m memThemes) FindByID(_ context.Context, id uint64) (*model.Theme, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.d.themes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m memThemes) List(context.Context) ([]model.Theme, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []model.Theme{}
	for _, t := range m.s.d.themes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memThemes) Rename(_ context.Context, id uint64, name string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.nameTaken(name, id) {
		return repository.ErrDuplicate
	}
	t := m.s.d.themes[id]
	t.Name = name
	m.s.d.themes[id] = t
	return nil
}

// Delete detaches the theme's articles like ON DELETE SET NULL.
func (m memThemes) Delete(_ context.Context, id uint64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.d.themes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.s.d.themes, id)
	for aid, a := range m.s.d.articles {
		if a.ThemeID != nil && *a.ThemeID == id {
			a.ThemeID = nil
			m.s.d.articles[aid] = a
		}
	}
	return nil
}

type memArticles struct{ s *memStore }

func (m memArticles) Create(_ context.Context, a *model.Article) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a.ID = m.s.id()
	m.s.d.articles[a.ID] = *a
	return nil
}

func (m memArticles) FindByID(_ context.Context, id uint64) (*model.Article, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.d.articles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m memArticles) List(_ context.Context, themeID uint64, limit, offset int) ([]model.Article, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Article
	for _, a := range m.s.d.articles {
		if themeID == 0 || (a.ThemeID != nil && *a.ThemeID == themeID) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	page, total := paginate(out, limit, offset)
	return page, total, nil
}

func (m memArticles) Update(_ context.Context, a *model.Article) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.d.articles[a.ID]; !ok {
		return repository.ErrNotFound
	}
	m.s.d.articles[a.ID] = *a
	return nil
}

func (m memArticles) Delete(_ context.Context, id uint64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.d.articles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.s.d.articles, id)
	return nil
}

func paginate[T any](items []T, limit, offset int) ([]T, int64) {
	total := int64(len(items))
	if offset >= len(items) {
		return []T{}, total
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], total
}

// test helpers

func (s *memStore) user(t *testing.T, id uint64) model.User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.d.users[id]
	require.True(t, ok, "user %d not stored", id)
	return u
}

func (s *memStore) book(t *testing.T, id uint64) model.Book {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.d.books[id]
	require.True(t, ok, "book %d not stored", id)
	return b
}

func (s *memStore) record(t *testing.T, id uint64) model.BorrowRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.d.borrows[id]
	require.True(t, ok, "borrow record %d not stored", id)
	return r
}

func (s *memStore) tokensOf(userID uint64) []model.ActivationToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ActivationToken
	for _, t := range s.d.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) countBorrows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.d.borrows)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

type fixture struct {
	store      *memStore
	clock      *testClock
	notifier   *recordingNotifier
	hasher     PasswordHasher
	tokens     *AccessTokenService
	activation *ActivationManager
	auth       *AuthService
	lending    *LendingService
	catalog    *CatalogService
	feedback   *FeedbackService
	content    *ContentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(true),
		clock:    newTestClock(),
		notifier: &recordingNotifier{},
		hasher:   BcryptHasher{Cost: bcrypt.MinCost},
	}
	f.tokens = NewAccessTokenService("test-secret", time.Hour, "book-network", f.clock)
	f.activation = NewActivationManager(f.store, f.clock, nil, DefaultActivationTTL)
	f.auth = NewAuthService(f.store, f.hasher, f.tokens, f.activation, f.notifier,
		"http://localhost:4200/activate-account", zap.NewNop())
	f.lending = NewLendingService(f.store, zap.NewNop())
	f.catalog = NewCatalogService(f.store)
	f.feedback = NewFeedbackService(f.store)
	f.content = NewContentService(f.store)
	return f
}

// member stores an enabled user holding the default role.
func (f *fixture) member(t *testing.T, email string) Identity {
	t.Helper()
	ctx := context.Background()
	hash, err := f.hasher.Hash("password1")
	require.NoError(t, err)
	u := &model.User{Email: email, PasswordHash: hash, FirstName: "Test", LastName: strings.Split(email, "@")[0], Enabled: true}
	r := f.store.Repos()
	require.NoError(t, r.Users().Create(ctx, u))
	role, err := r.Roles().FindByName(ctx, model.DefaultRole)
	require.NoError(t, err)
	require.NoError(t, r.Users().AssignRoles(ctx, u.ID, role.ID))
	u.Roles = []string{role.Name}
	return NewIdentity(u)
}

// shelve stores a book owned by owner with the given flags.
func (f *fixture) shelve(t *testing.T, owner Identity, title string, shareable, archived bool) uint64 {
	t.Helper()
	b := &model.Book{OwnerID: owner.UserID, Title: title, AuthorName: "Author", ISBN: "9780134190440",
		Shareable: shareable, Archived: archived}
	require.NoError(t, f.store.Repos().Books().Create(context.Background(), b))
	return b.ID
}
