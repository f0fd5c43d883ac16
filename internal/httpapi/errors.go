package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"farmapos.dev/internal/authz"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the structured denial body shared by every gate in the
// pipeline. Messages are user-facing; internal details never leave this
// layer.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"status":    code,
		"error":     http.StatusText(code),
		"message":   msg,
		"path":      r.URL.Path,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeAuthzError maps gate denials onto their fixed status codes.
func writeAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "No autorizado")
	case errors.Is(err, authz.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "No tiene permisos para realizar esta acción")
	default:
		writeError(w, r, http.StatusInternalServerError, "Error interno")
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "Método no permitido")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("se requiere un cuerpo JSON")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("contenido inesperado después del cuerpo JSON")
		}
		return err
	}
	return nil
}
