package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// forwardHeaders are tried in order before falling back to the socket
// address. The literal value "unknown" (any case) is what several reverse
// proxies emit when they could not resolve the client, so it counts as
// absent.
var forwardHeaders = []string{
	"X-Forwarded-For",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
	"HTTP_X_FORWARDED_FOR",
}

// ClientIP resolves the originating client address of a request. Forwarded
// headers may carry a comma-separated chain; the first entry is the client.
func ClientIP(r *http.Request) string {
	for _, header := range forwardHeaders {
		value := strings.TrimSpace(r.Header.Get(header))
		if value == "" || strings.EqualFold(value, "unknown") {
			continue
		}
		if i := strings.Index(value, ","); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
		if value != "" && !strings.EqualFold(value, "unknown") {
			return value
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
