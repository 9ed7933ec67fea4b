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
	"errors"
)

// Construction errors. Once a limiter is built, admission paths never
// surface errors; failures degrade to admitting the request instead.
var (
	// ErrConfigRequired is returned when no configuration is provided.
	ErrConfigRequired = errors.New("rate limit config is required")

	// ErrStoreRequired is returned when no store is provided.
	ErrStoreRequired = errors.New("store is required")

	// ErrUnknownBackend is returned for a storage backend name that is
	// neither memory nor shared.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrSharedAddressRequired is returned when the shared backend is
	// selected without an address to reach it.
	ErrSharedAddressRequired = errors.New("shared backend address is required")
)
