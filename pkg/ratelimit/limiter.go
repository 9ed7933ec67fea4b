package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kadirpekel/cerberus/pkg/config"
)

// SlidingWindowLimiter implements RateLimiter over a Store.
//
// Every request is checked against the minute and the hour window, each
// with its own key and limit. The windows run independently: a window that
// still has room records the request even when the other one rejects it,
// so hour capacity reflects real demand and an exhausted window is never
// pushed further over its limit by rejected retries.
type SlidingWindowLimiter struct {
	config *config.RateLimitConfig
	store  Store
	now    func() time.Time
	mu     sync.RWMutex
}

// NewSlidingWindowLimiter creates a limiter backed by the given store.
func NewSlidingWindowLimiter(cfg *config.RateLimitConfig, store Store) (*SlidingWindowLimiter, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}

	return &SlidingWindowLimiter{
		config: cfg,
		store:  store,
		now:    time.Now,
	}, nil
}

// Evaluate checks the request against every configured window, using the
// request path as the endpoint. It never fails; when a decision cannot be
// made the request is admitted.
func (l *SlidingWindowLimiter) Evaluate(ctx context.Context, r *http.Request) Decision {
	return l.EvaluateEndpoint(ctx, r, r.URL.Path)
}

// EvaluateEndpoint is Evaluate with an explicit endpoint, for routes that
// share one quota regardless of path parameters.
func (l *SlidingWindowLimiter) EvaluateEndpoint(ctx context.Context, r *http.Request, endpoint string) Decision {
	l.mu.RLock()
	cfg := l.config
	l.mu.RUnlock()

	if !cfg.IsEnabled() {
		return Decision{Allowed: true}
	}

	identity := ClientIdentity(r)
	now := l.now()

	ctx, span := startEvaluateSpan(ctx, identity, endpoint)
	defer span.End()

	minute := l.checkWindow(ctx, identity, endpoint, WindowMinute, cfg.RequestsPerMinute, now)
	hour := l.checkWindow(ctx, identity, endpoint, WindowHour, cfg.RequestsPerHour, now)

	decision := Decision{
		Allowed:   minute.Allowed && hour.Allowed,
		Window:    WindowMinute,
		Limit:     cfg.RequestsPerMinute,
		Remaining: remaining(cfg.RequestsPerMinute, minute.Count),
		ResetAt:   minute.ResetAt,
	}

	// The minute window has reporting priority; the hour window is only
	// reported when it is the sole window denying the request.
	if minute.Allowed && !hour.Allowed {
		decision.Window = WindowHour
		decision.Limit = cfg.RequestsPerHour
		decision.Remaining = remaining(cfg.RequestsPerHour, hour.Count)
		decision.ResetAt = hour.ResetAt
	}

	if !decision.Allowed {
		if wait := decision.ResetAt - now.Unix(); wait > 0 {
			decision.RetryAfter = time.Duration(wait) * time.Second
		}
	}

	finishEvaluateSpan(span, decision)
	recordDecision(ctx, decision)

	return decision
}

// checkWindow runs one window's check against the store.
func (l *SlidingWindowLimiter) checkWindow(ctx context.Context, identity, endpoint string, window Window, limit int64, now time.Time) Result {
	key := RateKey(identity, endpoint, window)

	result, err := l.store.CheckAndIncrement(ctx, key, limit, window.Duration(), now)
	if err != nil {
		// On error, admit the request (fail open).
		slog.Error("Rate limit check failed",
			"window", string(window),
			"identity", identity,
			"error", err)
		return Result{Allowed: true, Count: 0, ResetAt: now.Add(window.Duration()).Unix()}
	}

	return result
}

// UpdateConfig swaps the active limits, typically on config reload. The
// storage backend is fixed at construction; changing it requires a restart.
func (l *SlidingWindowLimiter) UpdateConfig(cfg *config.RateLimitConfig) error {
	if cfg == nil {
		return ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid rate limit config: %w", err)
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()

	return nil
}

// Close closes the underlying store.
func (l *SlidingWindowLimiter) Close() error {
	return l.store.Close()
}

// remaining clamps leftover capacity at zero.
func remaining(limit, count int64) int64 {
	if left := limit - count; left > 0 {
		return left
	}
	return 0
}
