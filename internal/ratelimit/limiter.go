// Package ratelimit bounds inbound request rates. The primary limiter is a
// windowed counter in a shared Redis store so the quota holds across
// gateway instances; an in-process limiter with identical semantics serves
// as the fallback when no store is configured. A token-bucket global
// ceiling guards the whole gateway independently of per-client quotas.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientKey derives the rate-limit key for a request: the first
// X-Forwarded-For hop when present, else the remote address host
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ScopedKey namespaces a client key by scope so per-endpoint quotas count
// independently of the default quota
func ScopedKey(scope, clientKey string) string {
	return scope + ":" + clientKey
}
