package config

import (
	"strings"
	"testing"
	"time"
)

func TestProcessConfigPipeline_Defaults(t *testing.T) {
	cfg, err := ProcessConfigPipeline(&Config{})
	if err != nil {
		t.Fatalf("pipeline failed on empty config: %v", err)
	}

	if cfg.Name != "cerberus" {
		t.Errorf("expected default name 'cerberus', got %q", cfg.Name)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.Address() != "0.0.0.0:8080" {
		t.Errorf("expected address 0.0.0.0:8080, got %q", cfg.Server.Address())
	}
	if cfg.Upstream != nil {
		t.Error("expected no upstream by default")
	}

	if cfg.Server.CORS == nil {
		t.Fatal("expected default CORS config")
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 1 || cfg.Server.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("expected wildcard CORS origin, got %v", cfg.Server.CORS.AllowedOrigins)
	}

	rl := cfg.RateLimiting
	if !rl.IsEnabled() {
		t.Error("expected rate limiting enabled by default")
	}
	if rl.RequestsPerMinute != DefaultRequestsPerMinute {
		t.Errorf("expected %d requests per minute, got %d", DefaultRequestsPerMinute, rl.RequestsPerMinute)
	}
	if rl.RequestsPerHour != DefaultRequestsPerHour {
		t.Errorf("expected %d requests per hour, got %d", DefaultRequestsPerHour, rl.RequestsPerHour)
	}
	if rl.StorageBackend != StorageBackendMemory {
		t.Errorf("expected memory backend, got %q", rl.StorageBackend)
	}
	if rl.OperationTimeout != DefaultOperationTimeout {
		t.Errorf("expected operation timeout %s, got %s", DefaultOperationTimeout, rl.OperationTimeout)
	}
	if len(rl.ExemptPaths) != len(DefaultExemptPaths) {
		t.Errorf("expected %d exempt paths, got %v", len(DefaultExemptPaths), rl.ExemptPaths)
	}

	if cfg.Logger.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Logger.Level)
	}
	if cfg.Logger.Format != "simple" {
		t.Errorf("expected default log format simple, got %q", cfg.Logger.Format)
	}
}

func TestProcessConfigPipeline_NilConfig(t *testing.T) {
	_, err := ProcessConfigPipeline(nil)
	if err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.Server.Port = 70000 },
			wantErr: "server config validation failed",
		},
		{
			name:    "negative port",
			mutate:  func(cfg *Config) { cfg.Server.Port = -1 },
			wantErr: "server config validation failed",
		},
		{
			name: "upstream url missing",
			mutate: func(cfg *Config) {
				cfg.Upstream = &UpstreamConfig{Timeout: time.Second}
			},
			wantErr: "upstream config validation failed",
		},
		{
			name: "upstream url bad scheme",
			mutate: func(cfg *Config) {
				cfg.Upstream = &UpstreamConfig{URL: "ftp://files.local", Timeout: time.Second}
			},
			wantErr: "scheme must be http or https",
		},
		{
			name: "upstream url without host",
			mutate: func(cfg *Config) {
				cfg.Upstream = &UpstreamConfig{URL: "http://", Timeout: time.Second}
			},
			wantErr: "host is required",
		},
		{
			name: "upstream negative timeout",
			mutate: func(cfg *Config) {
				cfg.Upstream = &UpstreamConfig{URL: "http://api:9000", Timeout: -time.Second}
			},
			wantErr: "upstream config validation failed",
		},
		{
			name:    "negative minute budget",
			mutate:  func(cfg *Config) { cfg.RateLimiting.RequestsPerMinute = -5 },
			wantErr: "rate limiting config validation failed",
		},
		{
			name: "shared backend without address",
			mutate: func(cfg *Config) {
				cfg.RateLimiting.StorageBackend = StorageBackendShared
			},
			wantErr: "shared_backend_address",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(cfg *Config) { cfg.RateLimiting.StorageBackend = "cassandra" },
			wantErr: "rate limiting config validation failed",
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Logger.Level = "chatty" },
			wantErr: "logger config validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestUpstreamConfig_TimeoutDefault(t *testing.T) {
	cfg := &Config{
		Upstream: &UpstreamConfig{URL: "http://api:9000"},
	}
	cfg.SetDefaults()

	if cfg.Upstream.Timeout != 30*time.Second {
		t.Errorf("expected default upstream timeout 30s, got %s", cfg.Upstream.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config with upstream should validate: %v", err)
	}
}

func TestBoolPtr(t *testing.T) {
	if !BoolValue(BoolPtr(true), false) {
		t.Error("expected true from BoolPtr(true)")
	}
	if BoolValue(BoolPtr(false), true) {
		t.Error("expected false from BoolPtr(false)")
	}
	if !BoolValue(nil, true) {
		t.Error("expected default true for nil pointer")
	}
	if BoolValue(nil, false) {
		t.Error("expected default false for nil pointer")
	}
}
