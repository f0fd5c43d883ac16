package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store over PostgreSQL using database/sql with the pgx
// stdlib driver.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, role_id, activo
		   from usuarios where lower(email) = lower($1)`,
		strings.TrimSpace(email),
	)
	return scanUser(row)
}

func (s *PGStore) FindUserByID(ctx context.Context, id int) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, role_id, activo
		   from usuarios where id = $1`,
		id,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.RoleID, &u.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: scan user: %w", err)
	}
	return &u, nil
}

func (s *PGStore) CreateRefreshToken(ctx context.Context, t *RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token_hash, expires_at, revoked, created_at, user_agent, client_ip)
		 values($1, $2, $3, $4, false, $5, $6, $7)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt, t.UserAgent, t.ClientIP,
	)
	if err != nil {
		return fmt.Errorf("session: insert refresh token: %w", err)
	}
	return nil
}

func (s *PGStore) FindRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token_hash, expires_at, revoked, created_at, user_agent, client_ip
		   from refresh_tokens where token_hash = $1`,
		tokenHash,
	)
	var t RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked,
		&t.CreatedAt, &t.UserAgent, &t.ClientIP)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: scan refresh token: %w", err)
	}
	return &t, nil
}

func (s *PGStore) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true where id = $1 and revoked = false`, id)
	if err != nil {
		return fmt.Errorf("session: revoke refresh token: %w", err)
	}
	return nil
}

func (s *PGStore) RevokeUserRefreshTokens(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true where user_id = $1 and revoked = false`, userID)
	if err != nil {
		return fmt.Errorf("session: revoke user refresh tokens: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from refresh_tokens where expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("session: delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
