package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"farmapos.dev/internal/obs"
	"farmapos.dev/internal/ratelimit"
	"farmapos.dev/internal/session"
	"farmapos.dev/internal/token"
)

// ReadyProbe reports readiness, pinging the database when one is wired.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options wires the API's collaborators. Codec and Limiter are required for
// a protected deployment; Sessions, Stats and Throttle are optional.
type Options struct {
	Codec    *token.Codec
	Limiter  *ratelimit.Registry
	Sessions *session.Service
	Stats    ratelimit.StatsRecorder
	Ready    ReadyProbe
	Version  string

	// Global ingress throttle, independent of per-identity quotas.
	ThrottlePerSecond int
	ThrottleBurst     int
}

// API is the HTTP layer: the fixed middleware pipeline plus the route table.
type API struct {
	mux      *http.ServeMux
	codec    *token.Codec
	limiter  *ratelimit.Registry
	sessions *session.Service
	stats    ratelimit.StatsRecorder
	ready    ReadyProbe
	version  string

	throttlePerSecond int
	throttleBurst     int
}

// New builds the API and registers its routes.
func New(opts Options) *API {
	a := &API{
		mux:               http.NewServeMux(),
		codec:             opts.Codec,
		limiter:           opts.Limiter,
		sessions:          opts.Sessions,
		stats:             opts.Stats,
		ready:             opts.Ready,
		version:           opts.Version,
		throttlePerSecond: opts.ThrottlePerSecond,
		throttleBurst:     opts.ThrottleBurst,
	}

	// Public surface.
	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReady)
	a.mux.Handle("/metrics", obs.Handler())

	// Session endpoints.
	a.mux.HandleFunc("/api/usuarios/auth", a.handleLogin)
	a.mux.HandleFunc("/api/usuarios/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/api/usuarios/logout", a.handleLogout)

	// Protected resources. The handlers consult the authorization gate and
	// delegate business logic to collaborators outside this layer.
	a.mux.HandleFunc("/api/productos", a.handleProductos)
	a.mux.HandleFunc("/api/productos/", a.handleProducto)
	a.mux.HandleFunc("/api/ventas", a.handleVentas)
	a.mux.HandleFunc("/api/ventas/", a.handleVenta)
	a.mux.HandleFunc("/api/usuarios/", a.handleUsuario)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Recurso no encontrado")
	})

	return a
}

// Handler assembles the request pipeline. Order is load-bearing: pre-flight
// and public-path handling happen before credential checks, and the
// per-identity rate limiter runs only once an identity (or its absence) is
// settled.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withRateLimit(h)
	h = a.withAuth(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	if a.throttlePerSecond > 0 {
		h = Throttle(h, a.throttlePerSecond, a.throttleBurst)
	}
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}
