package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"farmapos.dev/internal/authz"
)

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "farmapos-api",
		"version": a.version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// identity returns the request identity; handlers behind withAuth always
// have one, but the zero value keeps the gate's unauthorized answer correct
// if a route is ever misregistered as public.
func identity(r *http.Request) authz.Identity {
	id, _ := authz.IdentityFromContext(r.Context())
	return id
}

// resourceID parses the trailing numeric path segment of a collection
// route.
func resourceID(path, prefix string) (int, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// The resource handlers below are the protected side of the pipeline: each
// operation consults the authorization gate with its category before
// touching business logic, which lives behind collaborators outside this
// core.

func (a *API) handleProductos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if err := authz.Require(identity(r), authz.ProductsRead); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "total": 0})
	case http.MethodPost:
		if err := authz.Require(identity(r), authz.ProductsWrite); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"status": "creado"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProducto(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r.URL.Path, "/api/productos/")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "Identificador de producto inválido")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if err := authz.Require(identity(r), authz.ProductsRead); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	case http.MethodPut:
		if err := authz.Require(identity(r), authz.ProductsWrite); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "actualizado"})
	case http.MethodDelete:
		if err := authz.Require(identity(r), authz.ProductsDelete); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "eliminado"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleVentas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if err := authz.Require(identity(r), authz.SalesRead); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "total": 0})
	case http.MethodPost:
		if err := authz.Require(identity(r), authz.SalesCreate); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"status": "registrada"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleVenta(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r.URL.Path, "/api/ventas/")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "Identificador de venta inválido")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if err := authz.Require(identity(r), authz.SalesRead); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	case http.MethodDelete:
		if err := authz.Require(identity(r), authz.SalesCancel); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "anulada"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleUsuario serves per-user records: a subject may read its own record,
// admins and directors may read anyone's.
func (a *API) handleUsuario(w http.ResponseWriter, r *http.Request) {
	id, ok := resourceID(r.URL.Path, "/api/usuarios/")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "Identificador de usuario inválido")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if err := authz.RequireResourceOwner(identity(r), id); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	case http.MethodPut:
		if err := authz.Require(identity(r), authz.UsersManage); err != nil {
			writeAuthzError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "actualizado"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}
