package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// Request headers consulted when deriving the client identity.
const (
	HeaderUserID       = "X-User-ID"
	HeaderForwardedFor = "X-Forwarded-For"
)

// ClientIdentity derives the throttling identity for a request.
//
// An authenticated user carries an X-User-ID header (set by upstream auth)
// and is throttled as "user:<id>" regardless of which address the traffic
// arrives from. Everyone else is throttled by address: the first hop of
// X-Forwarded-For when a proxy forwarded the request, the transport peer
// otherwise. Malformed input degrades step by step down to "ip:unknown";
// this function never fails.
func ClientIdentity(r *http.Request) string {
	if userID := r.Header.Get(HeaderUserID); userID != "" {
		return "user:" + userID
	}

	ip := "unknown"
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}

	// Behind a proxy the peer address is the proxy itself; the first
	// forwarded hop is the original client.
	if forwarded := r.Header.Get(HeaderForwardedFor); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			ip = first
		}
	}

	return "ip:" + ip
}
