package httpapi

import (
	"errors"
	"net/http"
	"time"

	"farmapos.dev/internal/audit"
	"farmapos.dev/internal/authz"
	"farmapos.dev/internal/ratelimit"
	"farmapos.dev/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	Token            string    `json:"token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	User             userInfo  `json:"usuario"`
}

type userInfo struct {
	ID    int    `json:"id"`
	Role  string `json:"rol"`
	Email string `json:"email"`
}

func (a *API) clientMeta(r *http.Request) session.ClientMeta {
	return session.ClientMeta{
		UserAgent: r.Header.Get("User-Agent"),
		ClientIP:  ratelimit.ClientIP(r),
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "Servicio de sesiones no disponible")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.sessions.Login(r.Context(), req.Email, req.Password, a.clientMeta(r))
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			_ = audit.LogEvent(r.Context(), "session.login_failed", map[string]any{"email": req.Email})
			writeError(w, r, http.StatusUnauthorized, "Credenciales inválidas")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Error interno")
		return
	}

	ctx := authz.ContextWithIdentity(r.Context(), pair.Identity)
	_ = audit.LogEvent(ctx, "session.login", nil)
	writeJSON(w, http.StatusOK, tokenPairResponse(pair))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "Servicio de sesiones no disponible")
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.sessions.Refresh(r.Context(), req.RefreshToken, a.clientMeta(r))
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			writeError(w, r, http.StatusUnauthorized, "Sesión inválida o expirada")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Error interno")
		return
	}

	ctx := authz.ContextWithIdentity(r.Context(), pair.Identity)
	_ = audit.LogEvent(ctx, "session.refresh", nil)
	writeJSON(w, http.StatusOK, tokenPairResponse(pair))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "Servicio de sesiones no disponible")
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			writeError(w, r, http.StatusUnauthorized, "Sesión inválida o expirada")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Error interno")
		return
	}

	_ = audit.LogEvent(r.Context(), "session.logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

func tokenPairResponse(pair session.TokenPair) tokenResponse {
	return tokenResponse{
		Token:            pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		User: userInfo{
			ID:    pair.Identity.UserID,
			Role:  authz.RoleName(pair.Identity.RoleID),
			Email: pair.Identity.Email,
		},
	}
}
