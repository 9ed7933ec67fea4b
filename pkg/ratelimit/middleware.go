// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultExemptPaths are the path prefixes that bypass rate limiting when
// no explicit list is configured. Health probes and API documentation stay
// reachable for throttled clients.
var DefaultExemptPaths = []string{"/health", "/docs", "/openapi.json", "/redoc"}

// Response headers describing the binding quota.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// MiddlewareConfig configures the admission middleware.
type MiddlewareConfig struct {
	// Limiter makes the admission decisions. A nil limiter disables the
	// middleware and requests pass through untouched.
	Limiter RateLimiter

	// ExemptPaths are path prefixes that skip evaluation entirely.
	// Defaults to DefaultExemptPaths when nil.
	ExemptPaths []string

	// OnRejected writes the rejection response. Defaults to a 429 with a
	// JSON detail body and the quota headers.
	OnRejected func(w http.ResponseWriter, r *http.Request, decision Decision)
}

// Middleware creates an HTTP middleware that enforces per-client request
// quotas.
//
// Exempt paths are matched by prefix before anything else and carry no
// quota headers. Everything else is evaluated exactly once: rejected
// requests are answered immediately with 429, admitted ones are forwarded
// with the decision's X-RateLimit headers already stamped so clients can
// pace themselves before hitting the limit.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	if cfg.ExemptPaths == nil {
		cfg.ExemptPaths = DefaultExemptPaths
	}
	if cfg.OnRejected == nil {
		cfg.OnRejected = defaultOnRejected
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r.URL.Path, cfg.ExemptPaths) {
				next.ServeHTTP(w, r)
				return
			}

			decision := cfg.Limiter.Evaluate(r.Context(), r)

			// Stash the decision for downstream handlers.
			ctx := context.WithValue(r.Context(), decisionContextKey{}, decision)
			r = r.WithContext(ctx)

			if !decision.Allowed {
				cfg.OnRejected(w, r, decision)
				return
			}

			setQuotaHeaders(w, decision)
			next.ServeHTTP(w, r)
		})
	}
}

// SimpleMiddleware wraps a limiter with the default rejection response.
// This is a convenience function for common use cases.
func SimpleMiddleware(limiter RateLimiter, exemptPaths ...string) func(http.Handler) http.Handler {
	cfg := MiddlewareConfig{Limiter: limiter}
	if len(exemptPaths) > 0 {
		cfg.ExemptPaths = exemptPaths
	}
	return Middleware(cfg)
}

// isExempt reports whether the path starts with any of the prefixes.
func isExempt(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// decisionContextKey is the context key for the admission decision.
type decisionContextKey struct{}

// DecisionFromContext returns the admission decision recorded for the
// request, if the middleware evaluated one.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	decision, ok := ctx.Value(decisionContextKey{}).(Decision)
	return decision, ok
}

// defaultOnRejected sends the standard 429 response.
func defaultOnRejected(w http.ResponseWriter, r *http.Request, decision Decision) {
	w.Header().Set("Content-Type", "application/json")
	setQuotaHeaders(w, decision)
	w.Header().Set(HeaderRetryAfter, strconv.FormatInt(int64(decision.RetryAfter/time.Second), 10))
	w.WriteHeader(http.StatusTooManyRequests)

	body := struct {
		Detail string `json:"detail"`
	}{
		Detail: fmt.Sprintf("Rate limit exceeded. Limit: %d, Reset at: %d", decision.Limit, decision.ResetAt),
	}
	_ = json.NewEncoder(w).Encode(body)
}

// setQuotaHeaders stamps the binding quota on the response.
func setQuotaHeaders(w http.ResponseWriter, decision Decision) {
	if decision.Window == "" {
		return
	}

	w.Header().Set(HeaderLimit, strconv.FormatInt(decision.Limit, 10))
	w.Header().Set(HeaderRemaining, strconv.FormatInt(decision.Remaining, 10))
	w.Header().Set(HeaderReset, strconv.FormatInt(decision.ResetAt, 10))
}
