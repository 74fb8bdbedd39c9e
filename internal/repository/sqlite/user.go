package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/story-studio/internal/apperror"
	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore persists user accounts.
type UserStore struct {
	conn *sql.DB
}

const userColumns = `id, email, name, password_hash, role, is_active, is_verified, created_at, updated_at`

// Create inserts a new user, filling in ID, defaults and timestamps.
// A duplicate email is reported as apperror.ErrConflict.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	ts := now()
	user.ID = xid.New().String()
	user.CreatedAt = ts
	user.UpdatedAt = ts
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		string(user.Role),
		user.IsActive,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User with this email already exists")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound if no user has that ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail returns apperror.ErrNotFound if no user has that email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// SetActive flips the account's active flag. Deactivation is an operator
// action, there is no HTTP route for it.
func (s *UserStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("User")
	}
	return nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var role string
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&role,
		&u.IsActive,
		&u.IsVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}
