// Package ratelimit implements the admission-control rate limiter: a
// fixed-window counter backed by a process-local window cache with a durable
// store mirror for cross-process visibility.
package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"github.com/gateward/gateward/pkg/constants"
)

// ResolveKey derives the stable rate-limit key for a request, namespaced by
// prefix. A request carrying a credential header is keyed by the credential;
// anonymous traffic is keyed by client address, falling back to a fixed
// sentinel when no address can be determined.
//
// The result is a pure function of the request's headers and remote address,
// so identical requests always map to the same key.
func ResolveKey(r *http.Request, prefix string) string {
	if secret := r.Header.Get(constants.HeaderAPIKey); secret != "" {
		return prefix + ":key:" + secret
	}
	return prefix + ":ip:" + clientAddress(r)
}

// clientAddress picks the client IP in precedence order: the first
// X-Forwarded-For entry, then X-Real-IP, then the connection's remote
// address.
func clientAddress(r *http.Request) string {
	if fwd := r.Header.Get(constants.HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := r.Header.Get(constants.HeaderRealIP); realIP != "" {
		return realIP
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return constants.UnknownClient
}
