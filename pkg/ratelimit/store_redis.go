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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultOperationTimeout bounds a single shared backend round trip.
const DefaultOperationTimeout = 500 * time.Millisecond

// checkAndIncrScript runs the full sliding window check server-side in one
// round trip: prune, count, and a record that only happens when the request
// is admitted, so rejected traffic never extends anyone's lockout. Scores
// are epoch milliseconds; members are random so concurrent admissions from
// different replicas never collapse into one entry.
//
// KEYS[1] sorted set of live request timestamps
// ARGV[1] limit, ARGV[2] window millis, ARGV[3] now millis,
// ARGV[4] key TTL seconds, ARGV[5] member
//
// Reply: {allowed 0|1, live count, reset epoch seconds}.
var checkAndIncrScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)

if count >= limit then
	local reset = now + window
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] then
		reset = tonumber(oldest[2]) + window
	end
	return {0, count, math.floor(reset / 1000)}
end

redis.call('ZADD', key, now, ARGV[5])
redis.call('EXPIRE', key, tonumber(ARGV[4]))
return {1, count + 1, math.floor((now + window) / 1000)}
`)

// RedisStore implements Store on one Redis sorted set per key, so every
// replica pointed at the same server shares the same windows.
//
// Availability wins over precision: when the backend fails for any reason
// the call is logged and served from the wrapped in-process fallback
// instead, and the error never reaches the caller. Each call retries the
// backend first, so service recovers as soon as Redis answers again.
type RedisStore struct {
	client   *redis.Client
	fallback Store
	timeout  time.Duration
	logger   *slog.Logger
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithFallback replaces the in-process store used while the backend is
// unreachable.
func WithFallback(fallback Store) RedisStoreOption {
	return func(s *RedisStore) {
		if fallback != nil {
			s.fallback = fallback
		}
	}
}

// WithOperationTimeout bounds each backend round trip.
func WithOperationTimeout(timeout time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger sets the logger for degradation events.
func WithLogger(logger *slog.Logger) RedisStoreOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore creates a shared store on the given client. Unless
// overridden, calls time out after DefaultOperationTimeout and fall back to
// a fresh MemoryStore.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:   client,
		fallback: NewMemoryStore(),
		timeout:  DefaultOperationTimeout,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CheckAndIncrement performs the window check on the shared backend, or on
// the in-process fallback when the backend call fails. It never returns an
// error; a degraded check admits traffic by per-replica counts instead of
// global ones.
func (s *RedisStore) CheckAndIncrement(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (Result, error) {
	result, err := s.checkShared(ctx, key, limit, window, now)
	if err == nil {
		return result, nil
	}

	s.logger.Warn("Shared rate limit backend unavailable, using in-process fallback",
		"key", key,
		"error", err)
	recordStoreFallback(ctx)

	return s.fallback.CheckAndIncrement(ctx, key, limit, window, now)
}

func (s *RedisStore) checkShared(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vals, err := checkAndIncrScript.Run(ctx, s.client, []string{key},
		limit,
		window.Milliseconds(),
		now.UnixMilli(),
		int64(window/time.Second),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("unexpected script reply of length %d", len(vals))
	}

	return Result{Allowed: vals[0] == 1, Count: vals[1], ResetAt: vals[2]}, nil
}

// Close closes the Redis client and the fallback store.
func (s *RedisStore) Close() error {
	return errors.Join(s.client.Close(), s.fallback.Close())
}
