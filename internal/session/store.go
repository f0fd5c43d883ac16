package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("session: not found")

// User is the minimal account projection needed to authenticate a login.
type User struct {
	ID           int
	Email        string
	PasswordHash string
	RoleID       int
	Active       bool
}

// RefreshToken is the persisted refresh credential. Only the SHA-256 digest
// of the raw token is stored; the raw value exists solely in the client's
// hands. A token is valid while it is neither revoked nor past expiry.
type RefreshToken struct {
	ID        string
	UserID    int
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UserAgent string
	ClientIP  string
}

// Valid reports whether the token may still be exchanged at the given
// instant.
func (t RefreshToken) Valid(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Store persists users and refresh credentials.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id int) (*User, error)

	CreateRefreshToken(ctx context.Context, t *RefreshToken) error
	FindRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID int) error
	DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}
