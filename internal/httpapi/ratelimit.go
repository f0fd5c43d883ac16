package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"farmapos.dev/internal/authz"
	"farmapos.dev/internal/obs"
	"farmapos.dev/internal/ratelimit"
)

// rateLimitExemptPaths skip admission accounting: throttling a login or a
// token refresh would lock users out of recovering a session.
var rateLimitExemptPaths = map[string]struct{}{
	"/api/usuarios/auth":         {},
	"/api/usuarios/auth/refresh": {},
}

// withRateLimit runs after authentication: authenticated requests are
// accounted per subject under their role quota, anonymous ones per client IP
// under the fixed anonymous quota.
func (a *API) withRateLimit(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if _, exempt := rateLimitExemptPaths[r.URL.Path]; exempt {
			next.ServeHTTP(w, r)
			return
		}

		var key string
		var quota ratelimit.Quota
		if id, ok := authz.IdentityFromContext(r.Context()); ok {
			key = ratelimit.UserKey(id.UserID)
			quota = ratelimit.QuotaForRole(id.RoleID)
		} else {
			key = ratelimit.AnonymousKey(ratelimit.ClientIP(r))
			quota = ratelimit.AnonymousQuota()
		}

		dec := a.limiter.Check(key, quota)
		obs.ObserveRateLimit(dec.Allowed)
		if a.stats != nil {
			_ = a.stats.Record(r.Context(), ratelimit.StatsEvent{
				Key:     key,
				Allowed: dec.Allowed,
				Method:  r.Method,
				Path:    r.URL.Path,
				At:      time.Now(),
			})
		}

		if dec.Limit >= 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(dec.Reset, 10))
		}
		if !dec.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfter))
			writeError(w, r, http.StatusTooManyRequests,
				"Demasiadas solicitudes, intente nuevamente más tarde")
			return
		}
		next.ServeHTTP(w, r)
	})
}
