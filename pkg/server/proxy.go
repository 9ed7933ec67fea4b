package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// buildProxy creates the reverse proxy for the configured upstream.
func (s *Server) buildProxy() (*httputil.ReverseProxy, error) {
	target, err := url.Parse(s.cfg.Upstream.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url %q: %w", s.cfg.Upstream.URL, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		// Present the upstream's host, not the gateway's. The original
		// client address still reaches the upstream via X-Forwarded-For.
		req.Host = target.Host
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = s.cfg.Upstream.Timeout
	proxy.Transport = transport

	// Negative FlushInterval flushes immediately, keeping SSE and other
	// streaming upstream responses alive through the gateway.
	proxy.FlushInterval = -1

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("Upstream request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"detail": "Upstream unavailable",
		})
	}

	return proxy, nil
}
