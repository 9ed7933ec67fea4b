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

package observability

import (
	"context"
	"time"
)

// NoopManager returns a Manager with everything disabled.
// Use this when observability is completely turned off.
func NoopManager() *Manager {
	return &Manager{}
}

// NoopMetrics is a metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) RecordHTTPRequest(_ context.Context, _, _ string, _ int, _ time.Duration) {}
func (NoopMetrics) RecordRateLimitDecision(_ context.Context, _ string, _ bool)              {}
func (NoopMetrics) RecordStoreFallback(_ context.Context)                                    {}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*PrometheusMetrics)(nil)
	_ Metrics = NoopMetrics{}
)
