package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/recshelf/recshelf-server/internal/domain"
)

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, created_at, last_seen_at, ip_address, user_agent`

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &s.CreatedAt, &s.LastSeenAt, &s.IPAddress, &s.UserAgent)
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.UserID, session.RefreshTokenHash,
		session.ExpiresAt, session.CreatedAt, session.LastSeenAt,
		session.IPAddress, session.UserAgent,
	)
	return mapError(err)
}

// GetSessionByRefreshHash looks up a session by its hashed refresh token.
func (s *Store) GetSessionByRefreshHash(ctx context.Context, hash string) (*domain.Session, error) {
	return scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1`, hash))
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return requireOneRow(s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id))
}

// DeleteExpiredSessions removes every session that expired before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
