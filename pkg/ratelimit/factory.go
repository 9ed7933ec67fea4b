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
	"fmt"
	"log/slog"
	"strings"

	"github.com/kadirpekel/cerberus/pkg/config"
	"github.com/redis/go-redis/v9"
)

// NewStore creates the storage backend named by the configuration.
//
// The shared backend is probed once so a dead backend shows up in the logs
// at startup. A failed probe is not fatal: every call falls back to an
// in-process store, and the backend may simply not be up yet.
func NewStore(cfg *config.RateLimitConfig) (Store, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	switch cfg.StorageBackend {
	case config.StorageBackendMemory, "":
		return NewMemoryStore(), nil

	case config.StorageBackendShared:
		if cfg.SharedBackendAddress == "" {
			return nil, fmt.Errorf("%w when storage_backend is %q", ErrSharedAddressRequired, config.StorageBackendShared)
		}

		opts, err := redisOptions(cfg.SharedBackendAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid shared backend address %q: %w", cfg.SharedBackendAddress, err)
		}

		client := redis.NewClient(opts)
		store := NewRedisStore(client, WithOperationTimeout(cfg.OperationTimeout))

		ctx, cancel := context.WithTimeout(context.Background(), store.timeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("Shared rate limit backend unreachable, starting degraded",
				"address", cfg.SharedBackendAddress,
				"error", err)
		}

		return store, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.StorageBackend)
	}
}

// redisOptions parses either a host:port pair or a redis:// URL.
func redisOptions(address string) (*redis.Options, error) {
	if strings.Contains(address, "://") {
		return redis.ParseURL(address)
	}
	return &redis.Options{Addr: address}, nil
}

// NewRateLimiterFromConfig creates a RateLimiter from configuration.
// If rate limiting is disabled, returns nil; the middleware treats a nil
// limiter as a pass-through.
func NewRateLimiterFromConfig(cfg *config.RateLimitConfig) (RateLimiter, error) {
	if cfg == nil || !cfg.IsEnabled() {
		return nil, nil
	}

	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	limiter, err := NewSlidingWindowLimiter(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return limiter, nil
}
