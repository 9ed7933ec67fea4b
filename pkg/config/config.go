package config

import (
	"fmt"

	"github.com/kadirpekel/cerberus/pkg/observability"
)

// Config is the root gateway configuration.
//
// Example:
//
//	version: "1.0"
//	name: orders-gateway
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	upstream:
//	  url: http://orders-api:9000
//	rate_limiting:
//	  requests_per_minute: 60
//	  requests_per_hour: 1000
type Config struct {
	// Version is the config schema version.
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Name identifies this gateway instance in logs and the status endpoint.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Description is free-form operator documentation.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty"`

	// Upstream configures the proxied service. Optional; when absent the
	// gateway serves only its built-in endpoints.
	Upstream *UpstreamConfig `yaml:"upstream,omitempty" json:"upstream,omitempty"`

	// RateLimiting configures the admission layer.
	RateLimiting RateLimitConfig `yaml:"rate_limiting,omitempty" json:"rate_limiting,omitempty"`

	// Observability configures tracing and metrics.
	Observability observability.Config `yaml:"observability,omitempty" json:"observability,omitempty"`

	// Logger configures logging.
	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty"`
}

// ProcessConfigPipeline applies defaults and validates the config.
func ProcessConfigPipeline(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ProcessConfigPipeline: config cannot be nil")
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ProcessConfigPipeline: validation failed: %w", err)
	}

	return cfg, nil
}

// SetDefaults applies default values to the whole config tree.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "cerberus"
	}

	c.Server.SetDefaults()

	if c.Upstream != nil {
		c.Upstream.SetDefaults()
	}

	c.RateLimiting.SetDefaults()
	c.Observability.SetDefaults()
	c.Logger.SetDefaults()
}

// Validate checks the whole config tree.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}

	if c.Upstream != nil {
		if err := c.Upstream.Validate(); err != nil {
			return fmt.Errorf("upstream config validation failed: %w", err)
		}
	}

	if err := c.RateLimiting.Validate(); err != nil {
		return fmt.Errorf("rate limiting config validation failed: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config validation failed: %w", err)
	}

	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config validation failed: %w", err)
	}

	return nil
}

// DefaultConfig returns a ready-to-run config with all defaults applied:
// memory-backed rate limiting at 60/min and 1000/hour on :8080, no upstream.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
