package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIdentity is the sentinel key used when no identity can be
// derived from a request.
const UnknownIdentity = "unknown"

// Identity derives the rate-limit key for a request. The verified token
// subject wins when present, then the first X-Forwarded-For entry, then
// the connection address.
func Identity(subject string, r *http.Request) string {
	if subject != "" {
		return "sub:" + subject
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return UnknownIdentity
}
