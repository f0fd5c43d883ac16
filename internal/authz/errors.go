package authz

import "errors"

var (
	// ErrUnauthorized means the request carries no complete identity.
	ErrUnauthorized = errors.New("authz: unauthorized")
	// ErrForbidden means the identity is valid but its role lacks permission.
	ErrForbidden = errors.New("authz: forbidden")
)
