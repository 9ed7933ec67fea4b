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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/kadirpekel/cerberus/pkg/config"
)

// SchemaCmd generates JSON Schema from Cerberus config structs.
// Useful for editor completion and CI-side config linting.
// Output is written to stdout for flexibility (can be redirected in Makefile).
type SchemaCmd struct {
	// Compact enables compact JSON output (no indentation)
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

// Run executes the schema generation command.
func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		// Disallow additional properties for strict validation
		AllowAdditionalProperties: false,
		// Inline all definitions (no $ref) so simple validators cope
		DoNotReference: true,
	}

	// Generate schema from Config struct
	schema := reflector.Reflect(&config.Config{})

	// Add metadata
	schema.ID = "https://cerberus.dev/schemas/config.json"
	schema.Title = "Cerberus Configuration Schema"
	schema.Description = "Complete configuration schema for the Cerberus admission-control gateway"

	// Add schema version
	schema.Version = "http://json-schema.org/draft-07/schema#"

	// Add examples (helpful for documentation and testing)
	schema.Examples = []interface{}{
		map[string]interface{}{
			"name": "edge-gateway",
			"upstream": map[string]interface{}{
				"url": "http://localhost:9000",
			},
			"rate_limiting": map[string]interface{}{
				"requests_per_minute":    60,
				"requests_per_hour":      1000,
				"storage_backend":        "shared",
				"shared_backend_address": "${REDIS_ADDR:-localhost:6379}",
			},
		},
	}

	// Marshal to JSON and write to stdout
	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	return nil
}
