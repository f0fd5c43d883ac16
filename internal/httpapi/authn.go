package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"farmapos.dev/internal/authz"
	"farmapos.dev/internal/obs"
	"farmapos.dev/internal/token"
)

// publicPathMarkers mark endpoints reachable without a credential. Matching
// is by substring, mirroring how the upstream proxy groups these routes.
var publicPathMarkers = []string{
	"/auth",
	"/google-auth",
	"/health",
	"/actuator",
	"/swagger",
	"/api-docs",
	"/test",
}

func isPublicPath(path string) bool {
	for _, marker := range publicPathMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

// withAuth verifies the bearer credential and attaches the decoded identity
// to the request context. Pre-flight requests and public paths pass through
// unauthenticated.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a.codec == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := token.FromAuthorizationHeader(r.Header.Get("Authorization"))
		if !ok {
			obs.ObserveAuthFailure("missing")
			writeError(w, r, http.StatusUnauthorized, "Token de autenticación requerido")
			return
		}

		identity, err := a.codec.ParseAndVerify(raw)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrExpired):
				obs.ObserveAuthFailure("expired")
				writeError(w, r, http.StatusUnauthorized, "Token expirado")
			case errors.Is(err, token.ErrBadSignature):
				obs.ObserveAuthFailure("bad_signature")
				writeError(w, r, http.StatusUnauthorized, "Token inválido")
			case errors.Is(err, token.ErrMalformed):
				obs.ObserveAuthFailure("malformed")
				writeError(w, r, http.StatusUnauthorized, "Token inválido")
			default:
				obs.ObserveAuthFailure("internal")
				writeError(w, r, http.StatusInternalServerError, "Error de autenticación")
			}
			return
		}

		ctx := authz.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
