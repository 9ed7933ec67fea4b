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

// Package ratelimit enforces per-client request quotas with true sliding
// windows.
//
// Every request is counted against two windows at once, minute and hour,
// keyed by client identity and endpoint. A window keeps the timestamps of
// its live requests: each check prunes entries older than the window
// length, counts the survivors, and records the new request only when the
// count is still under the limit. Rejected requests are never recorded, so
// a client that keeps retrying while locked out does not push its own
// reset time further away.
//
// The two windows run independently. A request rejected by the minute
// window still consumes hour capacity when the hour window has room, and
// the exhausted window is left untouched. Reported quota figures always
// come from the binding window, with the minute window taking priority
// when both reject.
//
// # Basic Usage
//
//	store := ratelimit.NewMemoryStore()
//
//	limiter, err := ratelimit.NewSlidingWindowLimiter(cfg, store)
//
//	handler := ratelimit.SimpleMiddleware(limiter)(mux)
//
// # Configuration
//
//	rate_limiting:
//	  enabled: true
//	  requests_per_minute: 60
//	  requests_per_hour: 1000
//	  storage_backend: "shared"  # or "memory"
//	  shared_backend_address: "redis:6379"
//	  exempt_paths: ["/health", "/docs"]
//
// # Storage Backends
//
//   - memory: in-process timestamps, per-replica limits; zero dependencies
//   - shared: Redis sorted sets, one global limit across all replicas
//
// The shared backend degrades instead of failing: any backend error is
// logged and the check is served from an in-process fallback, then calls
// return to the backend as soon as it answers again. Remaining counts are
// computed from the same atomic check that admitted the request, so
// concurrent callers may each read a slightly stale remaining figure;
// admitted counts themselves never exceed the limit.
package ratelimit
