package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"farmapos.dev/internal/authz"
)

const issuer = "farmapos"

var (
	// ErrMalformed indicates the credential does not have the expected
	// three-segment structure or carries undecodable content.
	ErrMalformed = errors.New("token: malformed credential")
	// ErrBadSignature indicates the MAC does not match the shared secret.
	ErrBadSignature = errors.New("token: signature mismatch")
	// ErrExpired indicates the credential is past its expiry.
	ErrExpired = errors.New("token: credential expired")
)

// Claims is the signed payload of an access token. Subject carries the user
// id in decimal form; role and email are custom claims.
type Claims struct {
	RoleID int    `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Codec issues and verifies signed access tokens using a symmetric HS256 MAC.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec with the given signing secret and token
// lifetime.
func NewCodec(secret string, lifetime time.Duration, opts ...CodecOption) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if lifetime <= 0 {
		return nil, errors.New("token: lifetime must be greater than zero")
	}
	c := &Codec{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs an access token embedding the identity. The issued-at instant
// is part of the signed payload, so two tokens issued for the same identity
// at different instants differ.
func (c *Codec) Issue(id authz.Identity) (string, error) {
	if id.UserID <= 0 {
		return "", errors.New("token: user id is required")
	}
	now := c.now().UTC()
	claims := Claims{
		RoleID: id.RoleID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.Itoa(id.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// ExpiresIn returns the configured token lifetime.
func (c *Codec) ExpiresIn() time.Duration { return c.lifetime }

// ParseAndVerify validates signature and expiry, then returns the embedded
// identity unmodified. Failures map to exactly one of ErrMalformed,
// ErrBadSignature or ErrExpired; no signature material leaks in messages.
func (c *Codec) ParseAndVerify(raw string) (authz.Identity, error) {
	if strings.Count(raw, ".") != 2 {
		return authz.Identity{}, ErrMalformed
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrBadSignature
		}
		return c.secret, nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return authz.Identity{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrBadSignature):
			return authz.Identity{}, ErrBadSignature
		default:
			return authz.Identity{}, ErrMalformed
		}
	}
	if !parsed.Valid {
		return authz.Identity{}, ErrBadSignature
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID <= 0 {
		return authz.Identity{}, ErrMalformed
	}
	return authz.Identity{
		UserID: userID,
		RoleID: claims.RoleID,
		Email:  claims.Email,
	}, nil
}
