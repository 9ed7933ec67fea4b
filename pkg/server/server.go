// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/cerberus"
	"github.com/kadirpekel/cerberus/pkg/config"
	"github.com/kadirpekel/cerberus/pkg/observability"
	"github.com/kadirpekel/cerberus/pkg/ratelimit"
)

// Server is the admission gateway: an HTTP front that rate-limits every
// non-exempt request before serving it from its built-in handlers or
// proxying it to the configured upstream.
type Server struct {
	cfg       *config.Config
	serverCfg *config.ServerConfig

	limiter ratelimit.RateLimiter
	obs     *observability.Manager
	now     func() time.Time

	server    *http.Server
	startedAt time.Time
	mu        sync.RWMutex
}

// Option configures the server.
type Option func(*Server)

// WithObservability sets the observability manager for tracing and metrics.
func WithObservability(obs *observability.Manager) Option {
	return func(s *Server) {
		s.obs = obs
	}
}

// WithLimiter injects a pre-built rate limiter. When not set, one is
// built from the config's rate_limiting section.
func WithLimiter(limiter ratelimit.RateLimiter) Option {
	return func(s *Server) {
		s.limiter = limiter
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a gateway server from config.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server: config is required")
	}

	serverCfg := &cfg.Server
	if serverCfg.Host == "" || serverCfg.Port == 0 {
		serverCfg.SetDefaults()
	}

	s := &Server{
		cfg:       cfg,
		serverCfg: serverCfg,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.limiter == nil {
		limiter, err := ratelimit.NewRateLimiterFromConfig(&cfg.RateLimiting)
		if err != nil {
			return nil, fmt.Errorf("server: building rate limiter: %w", err)
		}
		s.limiter = limiter // nil when rate limiting is disabled
	}

	return s, nil
}

// Start runs the server until ctx is cancelled, then drains gracefully.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.buildHandler()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.startedAt = s.now()
	s.server = &http.Server{
		Addr:         s.serverCfg.Address(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.mu.Unlock()

	slog.Info("Gateway starting", "address", s.serverCfg.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server and closes the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error

	if s.server != nil {
		slog.Info("Gateway shutting down")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown error: %w", err))
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("limiter close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	return nil
}

// Address returns the address the server binds to.
func (s *Server) Address() string {
	return s.serverCfg.Address()
}

// buildHandler assembles the router and the middleware chain.
// Order (outermost first): observability -> logging -> cors -> rate limit.
func (s *Server) buildHandler() (http.Handler, error) {
	r := chi.NewRouter()

	if s.obs != nil {
		r.Use(observability.HTTPMiddleware(s.obs.Tracer("cerberus.server"), s.obs.Metrics()))
	}
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)

	if s.limiter != nil {
		r.Use(ratelimit.Middleware(ratelimit.MiddlewareConfig{
			Limiter:     s.limiter,
			ExemptPaths: s.exemptPaths(),
		}))
	}

	r.Get("/health", s.handleHealth)

	if s.obs != nil && s.obs.MetricsEnabled() {
		endpoint := s.obs.MetricsEndpoint()
		r.Get(endpoint, s.obs.MetricsHandler().ServeHTTP)
		slog.Info("Metrics endpoint enabled", "path", endpoint)
	}

	if s.cfg.Upstream != nil {
		proxy, err := s.buildProxy()
		if err != nil {
			return nil, err
		}
		// Everything the gateway doesn't serve itself goes upstream.
		r.NotFound(proxy.ServeHTTP)
		slog.Info("Proxying to upstream", "url", s.cfg.Upstream.URL)
	} else {
		r.Get("/", s.handleStatus)
	}

	return r, nil
}

// exemptPaths returns the configured exempt prefixes plus the metrics
// endpoint, so scrapes are never throttled.
func (s *Server) exemptPaths() []string {
	paths := append([]string(nil), s.cfg.RateLimiting.ExemptPaths...)
	if paths == nil {
		paths = append(paths, ratelimit.DefaultExemptPaths...)
	}

	if s.obs != nil && s.obs.MetricsEnabled() {
		paths = append(paths, s.obs.MetricsEndpoint())
	}
	return paths
}

// handleHealth reports gateway liveness. Exempt from rate limiting by
// default so orchestrator probes survive client floods.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// handleStatus serves the root status document when no upstream is
// configured.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.mu.RLock()
	startedAt := s.startedAt
	name := s.cfg.Name
	s.mu.RUnlock()

	var uptime float64
	if !startedAt.IsZero() {
		uptime = s.now().Sub(startedAt).Seconds()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"service":        name,
		"version":        cerberus.Version,
		"uptime_seconds": int64(uptime),
	})
}

// UpdateConfig atomically applies a reloaded config (hot-reload).
// Rate limit budgets take effect immediately; exempt paths, the listener
// address and the storage backend are fixed until restart.
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	if old.RateLimiting.StorageBackend != cfg.RateLimiting.StorageBackend ||
		old.RateLimiting.SharedBackendAddress != cfg.RateLimiting.SharedBackendAddress {
		slog.Warn("Storage backend change requires a restart to take effect")
	}
	if old.Server.Address() != cfg.Server.Address() {
		slog.Warn("Listener address change requires a restart to take effect")
	}
	if !slices.Equal(old.RateLimiting.ExemptPaths, cfg.RateLimiting.ExemptPaths) {
		slog.Warn("Exempt path changes require a restart to take effect")
	}

	if s.limiter != nil {
		if err := s.limiter.UpdateConfig(&cfg.RateLimiting); err != nil {
			slog.Error("Failed to apply reloaded rate limit config", "error", err)
			return
		}
		slog.Info("Rate limit config updated",
			"requests_per_minute", cfg.RateLimiting.RequestsPerMinute,
			"requests_per_hour", cfg.RateLimiting.RequestsPerHour,
		)
	}
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	cors := s.serverCfg.CORS
	if cors == nil {
		// Default permissive CORS for development
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}

	allowMethods := joinOrDefault(cors.AllowedMethods, "GET, POST, OPTIONS")
	allowHeaders := joinOrDefault(cors.AllowedHeaders, "Content-Type, Authorization")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, allowed := range cors.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", allowMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		if config.BoolValue(cors.AllowCredentials, false) {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func joinOrDefault(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

// loggingMiddleware logs requests. The ResponseWriter is not wrapped here
// so http.Flusher keeps working for streaming upstreams.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
