package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"farmapos.dev/internal/authz"
	"farmapos.dev/internal/ratelimit"
	"farmapos.dev/internal/session"
	"farmapos.dev/internal/token"
)

const pipelineSecret = "pipeline-test-secret"

// stubStore backs the session service in end-to-end tests with a single
// known account.
type stubStore struct {
	user   *session.User
	tokens map[string]*session.RefreshToken
}

func newStubStore(t *testing.T) *stubStore {
	t.Helper()
	hash, err := session.HashPassword("s3creta")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &stubStore{
		user: &session.User{
			ID:           7,
			Email:        "vendedor@farmapos.dev",
			PasswordHash: hash,
			RoleID:       authz.RoleVendedor,
			Active:       true,
		},
		tokens: make(map[string]*session.RefreshToken),
	}
}

func (s *stubStore) FindUserByEmail(_ context.Context, email string) (*session.User, error) {
	if email == s.user.Email {
		return s.user, nil
	}
	return nil, session.ErrNotFound
}

func (s *stubStore) FindUserByID(_ context.Context, id int) (*session.User, error) {
	if id == s.user.ID {
		return s.user, nil
	}
	return nil, session.ErrNotFound
}

func (s *stubStore) CreateRefreshToken(_ context.Context, t *session.RefreshToken) error {
	clone := *t
	s.tokens[t.TokenHash] = &clone
	return nil
}

func (s *stubStore) FindRefreshToken(_ context.Context, hash string) (*session.RefreshToken, error) {
	t, ok := s.tokens[hash]
	if !ok {
		return nil, session.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (s *stubStore) RevokeRefreshToken(_ context.Context, id string) error {
	for _, t := range s.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (s *stubStore) RevokeUserRefreshTokens(_ context.Context, userID int) error {
	for _, t := range s.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (s *stubStore) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type testEnv struct {
	handler http.Handler
	limiter *ratelimit.Registry
	codec   *token.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	codec, err := token.NewCodec(pipelineSecret, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	limiter := ratelimit.NewRegistry()
	t.Cleanup(limiter.Close)

	sessions, err := session.NewService(newStubStore(t), codec)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	api := New(Options{
		Codec:    codec,
		Limiter:  limiter,
		Sessions: sessions,
		Version:  "test",
	})
	return &testEnv{handler: api.Handler(), limiter: limiter, codec: codec}
}

func (e *testEnv) bearerFor(t *testing.T, id authz.Identity) string {
	t.Helper()
	raw, err := e.codec.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + raw
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestPipelineMissingTokenDeniedBeforeRateLimit(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/productos/5", nil)
	req.RemoteAddr = "10.0.0.1:4567"
	rr := env.do(req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "Token de autenticación requerido" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	if body["status"] != float64(http.StatusUnauthorized) {
		t.Fatalf("unexpected status field: %v", body["status"])
	}
	if body["path"] != "/api/productos/5" {
		t.Fatalf("unexpected path field: %v", body["path"])
	}
	// Authentication failed first: no rate-limit state was touched.
	if got := env.limiter.Size(); got != 0 {
		t.Fatalf("expected no buckets, got %d", got)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "" {
		t.Fatal("rate-limit metadata must not appear on auth denials")
	}
}

func TestPipelinePreflightShortCircuits(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/usuarios/auth", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	rr := env.do(req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected CORS headers on pre-flight")
	}
	if got := env.limiter.Size(); got != 0 {
		t.Fatalf("pre-flight must not touch rate-limit counters, got %d buckets", got)
	}
}

func TestPipelineAnonymousQuotaExhaustion(t *testing.T) {
	env := newTestEnv(t)

	for i := 1; i <= 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "203.0.113.50:1000"
		rr := env.do(req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "203.0.113.50:1000"
	rr := env.do(req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("request 21: expected 429, got %d", rr.Code)
	}
	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || retry <= 0 {
		t.Fatalf("expected positive Retry-After, got %q", rr.Header().Get("Retry-After"))
	}
	if rr.Header().Get("X-RateLimit-Limit") != "20" {
		t.Fatalf("expected X-RateLimit-Limit 20, got %q", rr.Header().Get("X-RateLimit-Limit"))
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected X-RateLimit-Remaining 0, got %q", rr.Header().Get("X-RateLimit-Remaining"))
	}

	// A different client address is accounted separately.
	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "203.0.113.51:1000"
	if rr := env.do(other); rr.Code != http.StatusOK {
		t.Fatalf("other client: expected 200, got %d", rr.Code)
	}
}

func TestPipelineAuthenticatedRequestCarriesRoleQuota(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/productos", nil)
	req.Header.Set("Authorization", env.bearerFor(t, authz.Identity{
		UserID: 7, RoleID: authz.RoleVendedor, Email: "vendedor@farmapos.dev",
	}))
	rr := env.do(req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-RateLimit-Limit") != "80" {
		t.Fatalf("vendedor quota is 80, got %q", rr.Header().Get("X-RateLimit-Limit"))
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "79" {
		t.Fatalf("expected 79 remaining, got %q", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestPipelineAdminIsUnthrottled(t *testing.T) {
	env := newTestEnv(t)
	header := env.bearerFor(t, authz.Identity{UserID: 1, RoleID: authz.RoleAdministrador, Email: "admin@farmapos.dev"})

	for i := 0; i < 300; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/productos", nil)
		req.Header.Set("Authorization", header)
		rr := env.do(req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "" {
			t.Fatal("unlimited identities carry no rate-limit metadata")
		}
	}
	if got := env.limiter.Size(); got != 0 {
		t.Fatalf("unlimited identities must not materialize buckets, got %d", got)
	}
}

func TestPipelineForbiddenRole(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/productos/5", nil)
	req.Header.Set("Authorization", env.bearerFor(t, authz.Identity{
		UserID: 7, RoleID: authz.RoleVendedor, Email: "vendedor@farmapos.dev",
	}))
	rr := env.do(req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "No tiene permisos para realizar esta acción" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestPipelineResourceOwner(t *testing.T) {
	env := newTestEnv(t)

	owner := env.bearerFor(t, authz.Identity{UserID: 2, RoleID: authz.RoleVendedor, Email: "v@farmapos.dev"})
	admin := env.bearerFor(t, authz.Identity{UserID: 99, RoleID: authz.RoleAdministrador, Email: "a@farmapos.dev"})

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"own record", "/api/usuarios/2", owner, http.StatusOK},
		{"someone else's record", "/api/usuarios/1", owner, http.StatusForbidden},
		{"admin reads anyone", "/api/usuarios/1", admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Authorization", tc.header)
			if rr := env.do(req); rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestPipelineRejectsTamperedToken(t *testing.T) {
	env := newTestEnv(t)

	header := env.bearerFor(t, authz.Identity{UserID: 7, RoleID: authz.RoleVendedor, Email: "v@farmapos.dev"})
	tampered := header + "Zm9v"

	req := httptest.NewRequest(http.MethodGet, "/api/productos", nil)
	req.Header.Set("Authorization", tampered)
	rr := env.do(req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "Token inválido" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestPipelineLoginThenProtectedAccess(t *testing.T) {
	env := newTestEnv(t)

	payload, _ := json.Marshal(loginRequest{Email: "vendedor@farmapos.dev", Password: "s3creta"})
	req := httptest.NewRequest(http.MethodPost, "/api/usuarios/auth", bytes.NewReader(payload))
	req.RemoteAddr = "10.0.0.1:4567"
	rr := env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" || resp.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}
	if resp.User.Role != "VENDEDOR" {
		t.Fatalf("unexpected role: %s", resp.User.Role)
	}

	protected := httptest.NewRequest(http.MethodGet, "/api/ventas", nil)
	protected.Header.Set("Authorization", "Bearer "+resp.Token)
	if rr := env.do(protected); rr.Code != http.StatusOK {
		t.Fatalf("protected request: expected 200, got %d", rr.Code)
	}

	// Rotate the session and confirm the old refresh credential dies.
	refreshBody, _ := json.Marshal(refreshRequest{RefreshToken: resp.RefreshToken})
	refresh := httptest.NewRequest(http.MethodPost, "/api/usuarios/auth/refresh", bytes.NewReader(refreshBody))
	if rr := env.do(refresh); rr.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	replay := httptest.NewRequest(http.MethodPost, "/api/usuarios/auth/refresh", bytes.NewReader(refreshBody))
	if rr := env.do(replay); rr.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: expected 401, got %d", rr.Code)
	}
}

func TestPipelineLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	payload, _ := json.Marshal(loginRequest{Email: "vendedor@farmapos.dev", Password: "incorrecta"})
	req := httptest.NewRequest(http.MethodPost, "/api/usuarios/auth", bytes.NewReader(payload))
	rr := env.do(req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "Credenciales inválidas" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestPipelineLoginIsNotRateLimited(t *testing.T) {
	env := newTestEnv(t)

	payload, _ := json.Marshal(loginRequest{Email: "vendedor@farmapos.dev", Password: "incorrecta"})
	for i := 0; i < 30; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/usuarios/auth", bytes.NewReader(payload))
		req.RemoteAddr = "10.0.0.2:4567"
		rr := env.do(req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rr.Code)
		}
	}
	if got := env.limiter.Size(); got != 0 {
		t.Fatalf("login attempts must not consume rate-limit buckets, got %d", got)
	}
}

func TestPipelineUnknownRouteIs404(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/desconocido", nil)
	req.Header.Set("Authorization", env.bearerFor(t, authz.Identity{
		UserID: 1, RoleID: authz.RoleAdministrador, Email: "a@farmapos.dev",
	}))
	rr := env.do(req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPipelineStatsRecorderObservesDecisions(t *testing.T) {
	codec, err := token.NewCodec(pipelineSecret, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	limiter := ratelimit.NewRegistry()
	t.Cleanup(limiter.Close)

	rec := &captureStats{}
	api := New(Options{Codec: codec, Limiter: limiter, Stats: rec, Version: "test"})
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "198.51.100.70:1000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 stats event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if !ev.Allowed || ev.Key != "anonymous_198.51.100.70" || ev.Path != "/healthz" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

type captureStats struct {
	events []ratelimit.StatsEvent
}

func (c *captureStats) Record(_ context.Context, ev ratelimit.StatsEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func TestPipelineQuotasDifferAcrossRoles(t *testing.T) {
	env := newTestEnv(t)

	// Externo (10/min) runs out long before director (200/min).
	externo := env.bearerFor(t, authz.Identity{UserID: 20, RoleID: authz.RoleExterno, Email: "e@farmapos.dev"})
	for i := 1; i <= 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/productos", nil)
		req.Header.Set("Authorization", externo)
		if rr := env.do(req); rr.Code == http.StatusTooManyRequests {
			t.Fatalf("externo request %d denied early", i)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/api/productos", nil)
	req.Header.Set("Authorization", externo)
	if rr := env.do(req); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("externo request 11: expected 429, got %d", rr.Code)
	}

	director := env.bearerFor(t, authz.Identity{UserID: 2, RoleID: authz.RoleDirector, Email: "d@farmapos.dev"})
	for i := 1; i <= 11; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/productos", nil)
		req.Header.Set("Authorization", director)
		if rr := env.do(req); rr.Code != http.StatusOK {
			t.Fatalf("director request %d: expected 200, got %d", i, rr.Code)
		}
	}
}

func TestPipelineRateLimitHeadersCountDown(t *testing.T) {
	env := newTestEnv(t)
	header := env.bearerFor(t, authz.Identity{UserID: 20, RoleID: authz.RoleExterno, Email: "e@farmapos.dev"})

	for i := 1; i <= 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/productos", nil)
		req.Header.Set("Authorization", header)
		rr := env.do(req)
		want := fmt.Sprintf("%d", 10-i)
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != want {
			t.Fatalf("request %d: remaining=%q, want %q", i, got, want)
		}
	}
}
