package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kadirpekel/cerberus/pkg/config"
)

// fakeClock lets tests slide the windows without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// failingStore simulates a broken backend.
type failingStore struct{}

func (failingStore) CheckAndIncrement(context.Context, string, int64, time.Duration, time.Time) (Result, error) {
	return Result{}, errors.New("backend unavailable")
}

func (failingStore) Close() error { return nil }

func limitsConfig(perMinute, perHour int64) *config.RateLimitConfig {
	return &config.RateLimitConfig{
		RequestsPerMinute: perMinute,
		RequestsPerHour:   perHour,
	}
}

func testRequest(user string) *http.Request {
	r := httptest.NewRequest("GET", "/v1/things", nil)
	if user != "" {
		r.Header.Set(HeaderUserID, user)
	}
	return r
}

func newTestLimiter(t *testing.T, cfg *config.RateLimitConfig) (*SlidingWindowLimiter, *MemoryStore, *fakeClock) {
	t.Helper()

	store := NewMemoryStore()
	limiter, err := NewSlidingWindowLimiter(cfg, store)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	clock := newFakeClock(testBase)
	limiter.now = clock.Now
	return limiter, store, clock
}

func TestNewSlidingWindowLimiter_ConstructionErrors(t *testing.T) {
	store := NewMemoryStore()

	if _, err := NewSlidingWindowLimiter(nil, store); !errors.Is(err, ErrConfigRequired) {
		t.Errorf("nil config: expected ErrConfigRequired, got %v", err)
	}
	if _, err := NewSlidingWindowLimiter(limitsConfig(1, 1), nil); !errors.Is(err, ErrStoreRequired) {
		t.Errorf("nil store: expected ErrStoreRequired, got %v", err)
	}
	if _, err := NewSlidingWindowLimiter(limitsConfig(-5, 100), store); err == nil {
		t.Error("negative minute limit: expected a validation error")
	}
}

func TestSlidingWindowLimiter_CountsDownThenRejects(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, limitsConfig(3, 100))
	ctx := context.Background()

	for i, wantRemaining := range []int64{2, 1, 0} {
		decision := limiter.Evaluate(ctx, testRequest("alice"))
		if !decision.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if decision.Window != WindowMinute {
			t.Errorf("request %d: expected minute window reporting, got %q", i+1, decision.Window)
		}
		if decision.Limit != 3 {
			t.Errorf("request %d: expected limit 3, got %d", i+1, decision.Limit)
		}
		if decision.Remaining != wantRemaining {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, wantRemaining, decision.Remaining)
		}
	}

	decision := limiter.Evaluate(ctx, testRequest("alice"))
	if decision.Allowed {
		t.Fatal("fourth request should be rejected")
	}
	if decision.Window != WindowMinute {
		t.Errorf("expected the minute window to bind, got %q", decision.Window)
	}
	if decision.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", decision.Remaining)
	}
	if got, want := decision.ResetAt, testBase.Add(time.Minute).Unix(); got != want {
		t.Errorf("expected reset at %d, got %d", want, got)
	}
	if decision.RetryAfter != time.Minute {
		t.Errorf("expected retry after 60s, got %s", decision.RetryAfter)
	}
}

func TestSlidingWindowLimiter_MinuteWindowRecovers(t *testing.T) {
	limiter, _, clock := newTestLimiter(t, limitsConfig(1, 100))
	ctx := context.Background()

	if decision := limiter.Evaluate(ctx, testRequest("alice")); !decision.Allowed {
		t.Fatal("first request should be allowed")
	}
	if decision := limiter.Evaluate(ctx, testRequest("alice")); decision.Allowed {
		t.Fatal("second request should be rejected")
	}

	clock.Advance(61 * time.Second)

	if decision := limiter.Evaluate(ctx, testRequest("alice")); !decision.Allowed {
		t.Error("request after the minute window passed should be allowed")
	}
}

func TestSlidingWindowLimiter_HourBudgetBinds(t *testing.T) {
	limiter, _, clock := newTestLimiter(t, limitsConfig(10, 3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if decision := limiter.Evaluate(ctx, testRequest("alice")); !decision.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	decision := limiter.Evaluate(ctx, testRequest("alice"))
	if decision.Allowed {
		t.Fatal("fourth request should be rejected by the hour window")
	}
	if decision.Window != WindowHour {
		t.Errorf("expected the hour window to bind, got %q", decision.Window)
	}
	if decision.Limit != 3 {
		t.Errorf("expected hour limit 3, got %d", decision.Limit)
	}
	if got, want := decision.ResetAt, testBase.Add(time.Hour).Unix(); got != want {
		t.Errorf("expected reset when the oldest hour entry expires at %d, got %d", want, got)
	}

	// Letting the minute window clear changes nothing; the hour window
	// still remembers the original requests.
	clock.Advance(61 * time.Second)
	decision = limiter.Evaluate(ctx, testRequest("alice"))
	if decision.Allowed {
		t.Fatal("request should still be rejected after the minute window cleared")
	}
	if decision.Window != WindowHour {
		t.Errorf("expected the hour window to bind, got %q", decision.Window)
	}
}

func TestSlidingWindowLimiter_RejectionLeavesWindowUntouched(t *testing.T) {
	limiter, _, clock := newTestLimiter(t, limitsConfig(1, 100))
	ctx := context.Background()

	if decision := limiter.Evaluate(ctx, testRequest("alice")); !decision.Allowed {
		t.Fatal("first request should be allowed")
	}

	clock.Advance(30 * time.Second)
	decision := limiter.Evaluate(ctx, testRequest("alice"))
	if decision.Allowed {
		t.Fatal("second request should be rejected")
	}
	if got, want := decision.ResetAt, testBase.Add(time.Minute).Unix(); got != want {
		t.Errorf("rejected retry moved the reset: got %d, want %d", got, want)
	}

	// 31 more seconds put us past the first request's expiry. Had the
	// rejected attempt been recorded, this would still be blocked.
	clock.Advance(31 * time.Second)
	if decision := limiter.Evaluate(ctx, testRequest("alice")); !decision.Allowed {
		t.Error("request after the original window passed should be allowed")
	}
}

func TestSlidingWindowLimiter_MinuteReportedWhenBothExhausted(t *testing.T) {
	limiter, _, clock := newTestLimiter(t, limitsConfig(1, 1))
	ctx := context.Background()

	if decision := limiter.Evaluate(ctx, testRequest("alice")); !decision.Allowed {
		t.Fatal("first request should be allowed")
	}

	clock.Advance(30 * time.Second)
	decision := limiter.Evaluate(ctx, testRequest("alice"))
	if decision.Allowed {
		t.Fatal("second request should be rejected")
	}
	if decision.Window != WindowMinute {
		t.Errorf("minute window has reporting priority, got %q", decision.Window)
	}
	if decision.Limit != 1 {
		t.Errorf("expected minute limit 1, got %d", decision.Limit)
	}
}

func TestSlidingWindowLimiter_DisabledAdmitsEverything(t *testing.T) {
	cfg := &config.RateLimitConfig{Enabled: config.BoolPtr(false)}
	limiter, store, _ := newTestLimiter(t, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision := limiter.Evaluate(ctx, testRequest("alice"))
		if !decision.Allowed {
			t.Fatalf("request %d should pass with limiting disabled", i+1)
		}
		if decision.Window != "" {
			t.Errorf("expected no binding window, got %q", decision.Window)
		}
	}

	if store.Size() != 0 {
		t.Errorf("disabled limiter should not touch the store, tracked keys: %d", store.Size())
	}
}

func TestSlidingWindowLimiter_FailsOpenOnStoreErrors(t *testing.T) {
	limiter, err := NewSlidingWindowLimiter(limitsConfig(1, 1), failingStore{})
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	for i := 0; i < 3; i++ {
		if decision := limiter.Evaluate(context.Background(), testRequest("alice")); !decision.Allowed {
			t.Errorf("request %d should be admitted when the store fails", i+1)
		}
	}
}

func TestSlidingWindowLimiter_UpdateConfigAppliesNewLimits(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, limitsConfig(1, 100))
	ctx := context.Background()

	if decision := limiter.Evaluate(ctx, testRequest("alice")); !decision.Allowed {
		t.Fatal("first request should be allowed")
	}
	if decision := limiter.Evaluate(ctx, testRequest("alice")); decision.Allowed {
		t.Fatal("second request should be rejected under the old limit")
	}

	if err := limiter.UpdateConfig(limitsConfig(5, 100)); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	decision := limiter.Evaluate(ctx, testRequest("alice"))
	if !decision.Allowed {
		t.Error("request should be allowed under the raised limit")
	}
	if decision.Limit != 5 {
		t.Errorf("expected the new limit 5, got %d", decision.Limit)
	}
}

func TestSlidingWindowLimiter_UpdateConfigRejectsInvalid(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, limitsConfig(5, 100))

	if err := limiter.UpdateConfig(nil); !errors.Is(err, ErrConfigRequired) {
		t.Errorf("nil config: expected ErrConfigRequired, got %v", err)
	}
	if err := limiter.UpdateConfig(limitsConfig(-1, 100)); err == nil {
		t.Error("negative limit: expected a validation error")
	}

	// The previous limits stay in force after a failed update.
	decision := limiter.Evaluate(context.Background(), testRequest("alice"))
	if !decision.Allowed || decision.Limit != 5 {
		t.Errorf("expected the original limit 5 to survive, got %+v", decision)
	}
}

func TestSlidingWindowLimiter_IdentitiesAreIsolated(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, limitsConfig(1, 100))
	ctx := context.Background()

	if decision := limiter.Evaluate(ctx, testRequest("alice")); !decision.Allowed {
		t.Fatal("alice's first request should be allowed")
	}
	if decision := limiter.Evaluate(ctx, testRequest("alice")); decision.Allowed {
		t.Fatal("alice's second request should be rejected")
	}
	if decision := limiter.Evaluate(ctx, testRequest("bob")); !decision.Allowed {
		t.Error("bob should not be affected by alice's quota")
	}
}

func TestSlidingWindowLimiter_EndpointsAreIsolated(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, limitsConfig(1, 100))
	ctx := context.Background()

	first := httptest.NewRequest("GET", "/v1/things", nil)
	first.Header.Set(HeaderUserID, "alice")
	if decision := limiter.Evaluate(ctx, first); !decision.Allowed {
		t.Fatal("first endpoint should be allowed")
	}
	if decision := limiter.Evaluate(ctx, first); decision.Allowed {
		t.Fatal("first endpoint should now be exhausted")
	}

	other := httptest.NewRequest("GET", "/v1/other", nil)
	other.Header.Set(HeaderUserID, "alice")
	if decision := limiter.Evaluate(ctx, other); !decision.Allowed {
		t.Error("a different endpoint has its own quota")
	}
}

func TestSlidingWindowLimiter_ExplicitEndpointSharesQuota(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, limitsConfig(1, 100))
	ctx := context.Background()

	// Two different paths billed to the same logical endpoint.
	first := httptest.NewRequest("GET", "/v1/things/42", nil)
	first.Header.Set(HeaderUserID, "alice")
	second := httptest.NewRequest("GET", "/v1/things/7", nil)
	second.Header.Set(HeaderUserID, "alice")

	if decision := limiter.EvaluateEndpoint(ctx, first, "/v1/things"); !decision.Allowed {
		t.Fatal("first request should be allowed")
	}
	if decision := limiter.EvaluateEndpoint(ctx, second, "/v1/things"); decision.Allowed {
		t.Error("second request should share the endpoint quota and be rejected")
	}
}
