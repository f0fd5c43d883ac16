package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"farmapos.dev/internal/authz"
	"farmapos.dev/internal/token"
)

const defaultRefreshTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// disabled accounts alike, so responses cannot be used to probe for
	// registered addresses.
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	// ErrInvalidRefreshToken covers unknown, revoked and expired refresh
	// credentials.
	ErrInvalidRefreshToken = errors.New("session: invalid refresh token")
)

// ClientMeta is the client context recorded with each refresh credential.
type ClientMeta struct {
	UserAgent string
	ClientIP  string
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Identity         authz.Identity
}

// Service implements login, refresh rotation and logout on top of the
// credential codec and a persistence store.
type Service struct {
	store      Store
	codec      *token.Codec
	refreshTTL time.Duration
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithRefreshTTL overrides the refresh credential lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the session service.
func NewService(store Store, codec *token.Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("session: store is required")
	}
	if codec == nil {
		return nil, errors.New("session: codec is required")
	}
	s := &Service{
		store:      store,
		codec:      codec,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login authenticates the credentials and issues a fresh token pair.
func (s *Service) Login(ctx context.Context, email, password string, meta ClientMeta) (TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("session: find user: %w", err)
	}
	if !user.Active {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issuePair(ctx, user, meta)
}

// Refresh exchanges a valid refresh credential for a new token pair. The
// presented credential is revoked as part of the rotation: each raw value is
// usable at most once.
func (s *Service) Refresh(ctx context.Context, raw string, meta ClientMeta) (TokenPair, error) {
	current, err := s.findToken(ctx, raw)
	if err != nil {
		return TokenPair{}, err
	}
	if !current.Valid(s.now()) {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	user, err := s.store.FindUserByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, fmt.Errorf("session: find user: %w", err)
	}
	if !user.Active {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	if err := s.store.RevokeRefreshToken(ctx, current.ID); err != nil {
		return TokenPair{}, fmt.Errorf("session: revoke rotated token: %w", err)
	}
	return s.issuePair(ctx, user, meta)
}

// Logout revokes the presented refresh credential.
func (s *Service) Logout(ctx context.Context, raw string) error {
	current, err := s.findToken(ctx, raw)
	if err != nil {
		return err
	}
	if err := s.store.RevokeRefreshToken(ctx, current.ID); err != nil {
		return fmt.Errorf("session: revoke token: %w", err)
	}
	return nil
}

// RevokeAll revokes every live refresh credential of a user.
func (s *Service) RevokeAll(ctx context.Context, userID int) error {
	return s.store.RevokeUserRefreshTokens(ctx, userID)
}

// PurgeExpired garbage-collects refresh credentials past expiry and reports
// how many rows were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredRefreshTokens(ctx, s.now())
}

func (s *Service) findToken(ctx context.Context, raw string) (*RefreshToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}
	current, err := s.store.FindRefreshToken(ctx, hashToken(raw))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("session: find refresh token: %w", err)
	}
	return current, nil
}

func (s *Service) issuePair(ctx context.Context, user *User, meta ClientMeta) (TokenPair, error) {
	identity := authz.Identity{UserID: user.ID, RoleID: user.RoleID, Email: user.Email}
	access, err := s.codec.Issue(identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session: issue access token: %w", err)
	}

	now := s.now().UTC()
	rawRefresh := uuid.NewString() + uuid.NewString()
	record := &RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashToken(rawRefresh),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
		UserAgent: meta.UserAgent,
		ClientIP:  meta.ClientIP,
	}
	if err := s.store.CreateRefreshToken(ctx, record); err != nil {
		return TokenPair{}, fmt.Errorf("session: store refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     rawRefresh,
		AccessExpiresAt:  now.Add(s.codec.ExpiresIn()),
		RefreshExpiresAt: record.ExpiresAt,
		Identity:         identity,
	}, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
