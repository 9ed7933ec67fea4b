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
	"sync"
	"time"
)

// MemoryStore is the in-process implementation of Store. It keeps the live
// request timestamps per key and is safe for concurrent use.
//
// Suitable for development, testing, and single-instance deployments; with
// multiple replicas each one throttles independently, so the effective
// limit is per replica rather than global.
type MemoryStore struct {
	data map[string][]time.Time
	mu   sync.Mutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]time.Time),
	}
}

// CheckAndIncrement runs the whole prune, count, decide, record sequence
// under one lock, so concurrent calls serialize and the count can never
// overshoot the limit.
func (s *MemoryStore) CheckAndIncrement(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)

	// Prune in place. Entries exactly at the boundary are expired.
	live := s.data[key][:0]
	for _, ts := range s.data[key] {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if int64(len(live)) >= limit {
		if len(live) == 0 {
			// Zero capacity and nothing recorded; there is no real
			// reset time to report.
			delete(s.data, key)
			return Result{Allowed: false, Count: 0, ResetAt: now.Add(window).Unix()}, nil
		}

		s.data[key] = live

		oldest := live[0]
		for _, ts := range live[1:] {
			if ts.Before(oldest) {
				oldest = ts
			}
		}

		return Result{Allowed: false, Count: int64(len(live)), ResetAt: oldest.Add(window).Unix()}, nil
	}

	s.data[key] = append(live, now)

	return Result{Allowed: true, Count: int64(len(live)) + 1, ResetAt: now.Add(window).Unix()}, nil
}

// Close clears all tracked keys.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]time.Time)
	return nil
}

// Size returns the number of tracked keys (for testing).
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
