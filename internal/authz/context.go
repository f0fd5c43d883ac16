package authz

import "context"

// Identity is the authenticated subject of a request as decoded from an
// access token. It is attached to the request context by the authentication
// middleware and consumed read-only by downstream handlers.
type Identity struct {
	UserID int
	RoleID int
	Email  string
}

// Complete reports whether the identity carries both a subject and a role.
// The gate refuses incomplete identities with ErrUnauthorized.
func (id Identity) Complete() bool {
	return id.UserID > 0 && id.RoleID > 0
}

type identityContextKey struct{}

// ContextWithIdentity attaches the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || !id.Complete() {
		return Identity{}, false
	}
	return id, true
}
