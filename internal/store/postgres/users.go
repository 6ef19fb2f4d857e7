package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/recshelf/recshelf-server/internal/domain"
)

const userColumns = `id, email, display_name, password_hash, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u         domain.User
		lastLogin *time.Time
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
		return nil, mapError(err)
	}
	if lastLogin != nil {
		u.LastLoginAt = *lastLogin
	}
	return &u, nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	var lastLogin *time.Time
	if !user.LastLoginAt.IsZero() {
		lastLogin = &user.LastLoginAt
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, email_lower, display_name, password_hash, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, strings.ToLower(strings.TrimSpace(user.Email)),
		user.DisplayName, user.PasswordHash, user.CreatedAt, user.UpdatedAt, lastLogin,
	)
	return mapError(err)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByEmail retrieves a user by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_lower = $1`,
		strings.ToLower(strings.TrimSpace(email))))
}

// ListUsers returns all users, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetLastLogin records a successful login.
func (s *Store) SetLastLogin(ctx context.Context, userID string, at time.Time) error {
	return requireOneRow(s.pool.Exec(ctx,
		`UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`, at, userID))
}
