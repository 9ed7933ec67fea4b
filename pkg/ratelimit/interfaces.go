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

package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/kadirpekel/cerberus/pkg/config"
)

// RateLimiter evaluates admission decisions for HTTP requests.
//
// Implementations must be thread-safe and support concurrent access.
type RateLimiter interface {
	// Evaluate derives the client identity from the request and checks it
	// against every configured window, using the request path as the
	// endpoint. It never fails; when a decision cannot be made the request
	// is admitted.
	Evaluate(ctx context.Context, r *http.Request) Decision

	// EvaluateEndpoint is Evaluate with an explicit endpoint, for routes
	// that share one quota regardless of path parameters.
	EvaluateEndpoint(ctx context.Context, r *http.Request, endpoint string) Decision

	// UpdateConfig swaps the active limits, typically on config reload.
	// The storage backend is fixed at construction and is not affected.
	UpdateConfig(cfg *config.RateLimitConfig) error

	// Close closes the underlying store.
	Close() error
}

// Store is the storage backend for sliding window checks.
//
// Implementations must be thread-safe, and CheckAndIncrement must be atomic
// per key: two concurrent calls for the same key must not interleave
// between counting the live requests and recording the new one.
type Store interface {
	// CheckAndIncrement discards timestamps older than now minus window,
	// counts the survivors, and records now if and only if the count is
	// still under limit. Denied requests leave the window untouched.
	// Timestamps exactly at the window boundary count as expired.
	CheckAndIncrement(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (Result, error)

	// Close closes the store and releases resources.
	Close() error
}

// Ensure interface compliance at compile time.
var (
	_ RateLimiter = (*SlidingWindowLimiter)(nil)
	_ Store       = (*MemoryStore)(nil)
	_ Store       = (*RedisStore)(nil)
)
