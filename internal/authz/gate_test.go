package authz

import (
	"context"
	"errors"
	"testing"
)

func TestCheckRoles(t *testing.T) {
	allowed := []int{RoleAdministrador, RoleGerente}

	cases := []struct {
		name string
		id   Identity
		want error
	}{
		{"missing subject", Identity{RoleID: RoleGerente}, ErrUnauthorized},
		{"missing role", Identity{UserID: 7}, ErrUnauthorized},
		{"role not allowed", Identity{UserID: 7, RoleID: RoleCajero}, ErrForbidden},
		{"role allowed", Identity{UserID: 7, RoleID: RoleGerente}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckRoles(tc.id, allowed)
			if !errors.Is(err, tc.want) {
				t.Fatalf("CheckRoles=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(Identity{UserID: 1, RoleID: RoleAdministrador}); err != nil {
		t.Fatalf("admin must pass: %v", err)
	}
	if err := RequireAdmin(Identity{UserID: 1, RoleID: RoleDirector}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("director is not admin, got %v", err)
	}
	if err := RequireAdmin(Identity{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty identity must be unauthorized, got %v", err)
	}
}

func TestRequireAdminPrivileges(t *testing.T) {
	for _, role := range []int{RoleAdministrador, RoleDirector} {
		if err := RequireAdminPrivileges(Identity{UserID: 2, RoleID: role}); err != nil {
			t.Fatalf("role %d must pass: %v", role, err)
		}
	}
	if err := RequireAdminPrivileges(Identity{UserID: 2, RoleID: RoleSupervisor}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("supervisor lacks admin privileges, got %v", err)
	}
}

func TestRequireResourceOwner(t *testing.T) {
	owner := Identity{UserID: 1, RoleID: RoleVendedor}
	if err := RequireResourceOwner(owner, 1); err != nil {
		t.Fatalf("owner must pass: %v", err)
	}

	other := Identity{UserID: 2, RoleID: RoleVendedor}
	if err := RequireResourceOwner(other, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner without privileges must be forbidden, got %v", err)
	}

	admin := Identity{UserID: 2, RoleID: RoleAdministrador}
	if err := RequireResourceOwner(admin, 1); err != nil {
		t.Fatalf("admin passes regardless of ownership: %v", err)
	}

	if err := RequireResourceOwner(Identity{}, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("incomplete identity must be unauthorized, got %v", err)
	}
}

func TestIdentityContextRoundTrip(t *testing.T) {
	id := Identity{UserID: 42, RoleID: RoleGerente, Email: "gerente@farmapos.dev"}
	ctx := ContextWithIdentity(context.Background(), id)

	got, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if got != id {
		t.Fatalf("identity mismatch: %+v", got)
	}

	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("empty context must not yield an identity")
	}
	incomplete := ContextWithIdentity(context.Background(), Identity{Email: "x@y"})
	if _, ok := IdentityFromContext(incomplete); ok {
		t.Fatal("incomplete identity must not be returned")
	}
}
