package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/book-network/internal/model"
)

const userColumns = `id, email, password_hash, first_name, last_name, account_locked, enabled,
	created_by, last_modified_by, created_at, updated_at`

// UserRepo persists users and their role assignments.
type UserRepo struct{ db dbtx }

func NewUserRepo(db dbtx) *UserRepo { return &UserRepo{db: db} }

// Create inserts the user and sets its generated ID. Email is
// normalized before insert.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, account_locked, enabled, created_by)
		 VALUES (?,?,?,?,?,?,?)`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.AccountLocked, u.Enabled, u.CreatedBy)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// FindByEmail fetches a user by normalized email, roles included.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.loadRoles(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID fetches a user by id, roles included.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.loadRoles(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update writes the mutable user columns.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_name=?, last_name=?, password_hash=?, account_locked=?, enabled=?,
		 last_modified_by=?, updated_at=UTC_TIMESTAMP() WHERE id=?`,
		u.FirstName, u.LastName, u.PasswordHash, u.AccountLocked, u.Enabled, u.LastModifiedBy, u.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignRoles links the user to each role id. Existing links are kept.
func (r *UserRepo) AssignRoles(ctx context.Context, userID uint64, roleIDs ...uint64) error {
	for _, rid := range roleIDs {
		if _, err := r.db.ExecContext(ctx,
			"INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?,?)", userID, rid); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepo) loadRoles(ctx context.Context, u *model.User) error {
	var names []string
	err := r.db.SelectContext(ctx, &names,
		`SELECT r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id=? ORDER BY r.name`, u.ID)
	if err != nil {
		return err
	}
	u.Roles = names
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RoleRepo reads the roles table.
type RoleRepo struct{ db dbtx }

func NewRoleRepo(db dbtx) *RoleRepo { return &RoleRepo{db: db} }

// FindByName returns ErrNotFound when the role was never seeded.
func (r *RoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.GetContext(ctx, &role, "SELECT id, name FROM roles WHERE name=? LIMIT 1", name); err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}
