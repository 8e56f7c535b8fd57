package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/zoo-booking/internal/model"
	"github.com/iliyamo/zoo-booking/internal/utils"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, name, role, is_active, created_at, updated_at`

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, name, role string, cost int) (uint64, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, role) VALUES (?,?,?,?)",
		email, hash, strings.TrimSpace(name), role)
	if err != nil {
		if isMySQLError(err, mysqlDuplicateEntry) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// EnsureAdmin creates an ADMIN account for email unless a user with
// that email already exists.  It reports whether a row was created.
func (r *UserRepo) EnsureAdmin(ctx context.Context, email, password string, cost int) (bool, error) {
	if _, err := r.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := r.Create(ctx, email, password, "Administrator", model.RoleAdmin, cost); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// List returns all users ordered by creation.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	out := []model.User{}
	err := r.DB.SelectContext(ctx, &out, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	return out, err
}

// Update overwrites name, role and is_active.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, role=?, is_active=? WHERE id=?",
		u.Name, u.Role, u.IsActive, u.ID)
	if err != nil {
		return err
	}
	return expectRow(ctx, r.DB, res, "SELECT COUNT(*) FROM users WHERE id=?", u.ID)
}

// UpdateProfile sets the user's name and email.  It returns
// ErrEmailExists when another account holds the email.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=? WHERE id=?",
		strings.TrimSpace(name), normalizeEmail(email), id)
	if err != nil {
		if isMySQLError(err, mysqlDuplicateEntry) {
			return ErrEmailExists
		}
		return err
	}
	return expectRow(ctx, r.DB, res, "SELECT COUNT(*) FROM users WHERE id=?", id)
}

// SetPassword replaces the user's password hash.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return expectRow(ctx, r.DB, res, "SELECT COUNT(*) FROM users WHERE id=?", id)
}

// Delete removes a user together with their bookings and tokens.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE user_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
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
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
