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
	"net/url"
	"time"
)

// ServerConfig configures the gateway's HTTP listener.
type ServerConfig struct {
	// Host to bind to.
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Port to listen on.
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// CORS configuration.
	CORS *CORSConfig `yaml:"cors,omitempty" json:"cors,omitempty"`
}

// CORSConfig configures CORS.
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" json:"allowed_origins,omitempty"`

	// AllowedMethods is a list of allowed HTTP methods.
	AllowedMethods []string `yaml:"allowed_methods,omitempty" json:"allowed_methods,omitempty"`

	// AllowedHeaders is a list of allowed headers.
	AllowedHeaders []string `yaml:"allowed_headers,omitempty" json:"allowed_headers,omitempty"`

	// AllowCredentials allows credentials.
	AllowCredentials *bool `yaml:"allow_credentials,omitempty" json:"allow_credentials,omitempty"`
}

// UpstreamConfig configures the service the gateway fronts.
//
// When the section is absent the gateway serves only its built-in
// endpoints; every request for another path gets a 404.
type UpstreamConfig struct {
	// URL is the upstream base URL, e.g. "http://api:9000".
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Timeout bounds each proxied round trip.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}

	if c.Port == 0 {
		c.Port = 8080
	}

	// Default CORS for development. X-User-ID is allowed so browser
	// clients can carry the identity header cross-origin.
	if c.CORS == nil {
		c.CORS = &CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-User-ID"},
		}
	}
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Address returns the host:port the server binds to.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetDefaults applies default values.
func (c *UpstreamConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks the upstream configuration.
func (c *UpstreamConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("upstream.url is required when the upstream section is present")
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid upstream.url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid upstream.url %q: scheme must be http or https", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid upstream.url %q: host is required", c.URL)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("upstream.timeout must not be negative, got %s", c.Timeout)
	}

	return nil
}
