package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreFindUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "role_id", "activo"}).
		AddRow(7, "vendedor@farmapos.dev", "$2a$10$hash", 7, true)
	mock.ExpectQuery(`select id, email, password_hash, role_id, activo.*from usuarios where lower\(email\)`).
		WithArgs("vendedor@farmapos.dev").
		WillReturnRows(rows)

	store := NewPGStore(db)
	user, err := store.FindUserByEmail(context.Background(), "vendedor@farmapos.dev")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if user.ID != 7 || user.RoleID != 7 || !user.Active {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreFindUserByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`select id, email, password_hash, role_id, activo.*from usuarios`).
		WithArgs("nadie@farmapos.dev").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role_id", "activo"}))

	store := NewPGStore(db)
	if _, err := store.FindUserByEmail(context.Background(), "nadie@farmapos.dev"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPGStoreRefreshTokenRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	expires := created.Add(24 * time.Hour)
	tok := &RefreshToken{
		ID:        "rt-1",
		UserID:    7,
		TokenHash: "abc123",
		ExpiresAt: expires,
		CreatedAt: created,
		UserAgent: "test-agent",
		ClientIP:  "10.0.0.9",
	}

	mock.ExpectExec(`insert into refresh_tokens`).
		WithArgs("rt-1", 7, "abc123", expires, created, "test-agent", "10.0.0.9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows := sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "revoked", "created_at", "user_agent", "client_ip"}).
		AddRow("rt-1", 7, "abc123", expires, false, created, "test-agent", "10.0.0.9")
	mock.ExpectQuery(`select id, user_id, token_hash, expires_at, revoked, created_at, user_agent, client_ip.*from refresh_tokens where token_hash`).
		WithArgs("abc123").
		WillReturnRows(rows)

	store := NewPGStore(db)
	if err := store.CreateRefreshToken(context.Background(), tok); err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	got, err := store.FindRefreshToken(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("FindRefreshToken: %v", err)
	}
	if got.ID != "rt-1" || got.Revoked || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected token: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreRevokeAndPurge(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`update refresh_tokens set revoked = true where id`).
		WithArgs("rt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`update refresh_tokens set revoked = true where user_id`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 3))
	cutoff := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(`delete from refresh_tokens where expires_at`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	store := NewPGStore(db)
	if err := store.RevokeRefreshToken(context.Background(), "rt-1"); err != nil {
		t.Fatalf("RevokeRefreshToken: %v", err)
	}
	if err := store.RevokeUserRefreshTokens(context.Background(), 7); err != nil {
		t.Fatalf("RevokeUserRefreshTokens: %v", err)
	}
	removed, err := store.DeleteExpiredRefreshTokens(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteExpiredRefreshTokens: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed=%d, want 2", removed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
