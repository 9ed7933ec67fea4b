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

package config

import (
	"fmt"
	"time"
)

// Storage backends for rate limit state.
const (
	// StorageBackendMemory keeps timestamps in process memory (default).
	// Counts are per-instance; use it for single-replica deployments.
	StorageBackendMemory = "memory"

	// StorageBackendShared keeps timestamps in a shared Redis-compatible
	// backend so all replicas enforce one quota.
	StorageBackendShared = "shared"
)

// Default request budgets per client identity.
const (
	DefaultRequestsPerMinute int64 = 60
	DefaultRequestsPerHour   int64 = 1000

	// DefaultOperationTimeout bounds each shared-backend call.
	DefaultOperationTimeout = 500 * time.Millisecond
)

// DefaultExemptPaths lists path prefixes that bypass rate limiting.
// Health probes and API documentation must stay reachable even for
// clients that exhausted their quota.
var DefaultExemptPaths = []string{"/health", "/docs", "/openapi.json", "/redoc"}

// RateLimitConfig defines rate limiting configuration.
//
// Two sliding windows are enforced per client: a minute window and an
// hour window. A request is admitted only when both have room.
//
// Example:
//
//	rate_limiting:
//	  enabled: true
//	  requests_per_minute: 60
//	  requests_per_hour: 1000
//	  storage_backend: shared
//	  shared_backend_address: redis://localhost:6379/0
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// RequestsPerMinute is the per-client budget over a sliding 60s window.
	// Default: 60
	RequestsPerMinute int64 `yaml:"requests_per_minute,omitempty" json:"requests_per_minute,omitempty"`

	// RequestsPerHour is the per-client budget over a sliding 3600s window.
	// Default: 1000
	RequestsPerHour int64 `yaml:"requests_per_hour,omitempty" json:"requests_per_hour,omitempty"`

	// StorageBackend is the rate limit state store ("memory" or "shared").
	StorageBackend string `yaml:"storage_backend,omitempty" json:"storage_backend,omitempty"`

	// SharedBackendAddress is the connection address for the shared backend.
	// Accepts "host:port" or a redis:// URL. Required when StorageBackend
	// is "shared".
	SharedBackendAddress string `yaml:"shared_backend_address,omitempty" json:"shared_backend_address,omitempty"`

	// OperationTimeout bounds each shared-backend round trip. On timeout
	// the check is served from the in-process fallback.
	// Default: 500ms
	OperationTimeout time.Duration `yaml:"operation_timeout,omitempty" json:"operation_timeout,omitempty"`

	// ExemptPaths are path prefixes that bypass rate limiting entirely.
	// Set to an empty list to exempt nothing.
	// Default: /health, /docs, /openapi.json, /redoc
	ExemptPaths []string `yaml:"exempt_paths,omitempty" json:"exempt_paths,omitempty"`
}

// IsEnabled returns true if rate limiting is enabled.
// Unlike most feature switches, rate limiting defaults to on.
func (c *RateLimitConfig) IsEnabled() bool {
	return c != nil && BoolValue(c.Enabled, true)
}

// SetDefaults sets default values for RateLimitConfig.
func (c *RateLimitConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.RequestsPerHour == 0 {
		c.RequestsPerHour = DefaultRequestsPerHour
	}
	if c.StorageBackend == "" {
		c.StorageBackend = StorageBackendMemory
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
	if c.ExemptPaths == nil {
		c.ExemptPaths = append([]string(nil), DefaultExemptPaths...)
	}
}

// Validate validates the RateLimitConfig.
func (c *RateLimitConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}

	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limiting.requests_per_minute must be positive, got %d", c.RequestsPerMinute)
	}
	if c.RequestsPerHour <= 0 {
		return fmt.Errorf("rate_limiting.requests_per_hour must be positive, got %d", c.RequestsPerHour)
	}

	switch c.StorageBackend {
	case "", StorageBackendMemory:
	case StorageBackendShared:
		if c.SharedBackendAddress == "" {
			return fmt.Errorf("rate_limiting.storage_backend %q requires 'shared_backend_address'", StorageBackendShared)
		}
	default:
		return fmt.Errorf("invalid rate_limiting.storage_backend %q, must be %q or %q",
			c.StorageBackend, StorageBackendMemory, StorageBackendShared)
	}

	if c.OperationTimeout < 0 {
		return fmt.Errorf("rate_limiting.operation_timeout must not be negative, got %s", c.OperationTimeout)
	}

	return nil
}
