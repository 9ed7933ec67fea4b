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

// Command cerberus is the CLI for the Cerberus gateway.
//
// Usage:
//
//	cerberus serve --config cerberus.yaml
//	cerberus validate cerberus.yaml --print-config
//	cerberus schema > config-schema.json
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/cerberus"
	"github.com/kadirpekel/cerberus/pkg/config"
	"github.com/kadirpekel/cerberus/pkg/config/provider"
	"github.com/kadirpekel/cerberus/pkg/observability"
	"github.com/kadirpekel/cerberus/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" default:"withargs" help:"Start the gateway."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the configuration."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error). Overrides config file."`
	LogFile   string `help:"Log file path (empty = stderr). Overrides config file."`
	LogFormat string `help:"Log format (simple, verbose, json). Overrides config file."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(cerberus.GetVersion().String())
	return nil
}

// ServeCmd starts the gateway.
type ServeCmd struct {
	Port  int  `help:"Port to listen on." default:"8080"`
	Watch bool `help:"Watch config file for changes and apply new limits live."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	// Load configuration. The reload callback closes over the gateway
	// variable assigned below; watching only starts after the assignment.
	var gateway *server.Server
	cfg, loader, err := c.loadConfig(ctx, cli.Config, func(updated *config.Config) {
		if gateway != nil {
			gateway.UpdateConfig(updated)
		}
	})
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	// Config file logger settings apply where CLI flags and environment
	// variables left gaps.
	cleanup, err := applyLoggerConfig(cli, &cfg.Logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Override port if explicitly specified
	if c.Port != 0 && c.Port != 8080 {
		cfg.Server.Port = c.Port
	}

	obs := observability.NewManager(cfg.Observability)
	if err := obs.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Observability shutdown failed", "error", err)
		}
	}()

	gateway, err = server.New(cfg, server.WithObservability(obs))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	printStartupInfo(cfg, gateway, obs)

	// The gateway and the optional config watcher run together; either
	// one failing stops the other through the shared context.
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return gateway.Start(groupCtx)
	})

	if c.Watch && loader != nil {
		group.Go(func() error {
			if err := loader.Watch(groupCtx); err != nil && groupCtx.Err() == nil {
				return fmt.Errorf("config watch failed: %w", err)
			}
			return nil
		})
	}

	return group.Wait()
}

// loadConfig loads configuration from file, or falls back to defaults when
// no file is given.
func (c *ServeCmd) loadConfig(ctx context.Context, configPath string, onChange func(*config.Config)) (*config.Config, *config.Loader, error) {
	if configPath == "" {
		slog.Info("No config file given, serving with default limits")
		return config.DefaultConfig(), nil, nil
	}

	_ = config.LoadEnvFilesFor(configPath)

	p, err := provider.NewFileProvider(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open config: %w", err)
	}

	loader := config.NewLoader(p, config.WithOnChange(onChange))
	cfg, err := loader.Load(ctx)
	if err != nil {
		_ = loader.Close()
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("Loaded configuration", "path", configPath)
	return cfg, loader, nil
}

// printStartupInfo prints the effective gateway setup.
func printStartupInfo(cfg *config.Config, gateway *server.Server, obs *observability.Manager) {
	redColor := "\033[38;2;220;38;38m"
	resetColor := "\033[0m"
	fmt.Printf("\n%sCerberus gateway ready!%s\n", redColor, resetColor)
	fmt.Printf("   Gateway:     http://%s\n", gateway.Address())
	if cfg.Upstream != nil {
		fmt.Printf("   Upstream:    %s\n", cfg.Upstream.URL)
	} else {
		fmt.Printf("   Upstream:    none (built-in endpoints only)\n")
	}
	fmt.Printf("   Health:      http://%s/health\n", gateway.Address())

	if cfg.RateLimiting.IsEnabled() {
		backend := cfg.RateLimiting.StorageBackend
		if backend == "" {
			backend = config.StorageBackendMemory
		}
		fmt.Printf("   Rate limits: %d/min, %d/hour (backend: %s)\n",
			cfg.RateLimiting.RequestsPerMinute, cfg.RateLimiting.RequestsPerHour, backend)
		if len(cfg.RateLimiting.ExemptPaths) > 0 {
			fmt.Printf("   Exempt:      %v\n", cfg.RateLimiting.ExemptPaths)
		}
	} else {
		fmt.Printf("   Rate limits: disabled\n")
	}

	if cfg.Observability.Tracing.Enabled {
		fmt.Printf("   Tracing:     %s (%s)\n", cfg.Observability.Tracing.Exporter, cfg.Observability.Tracing.Endpoint)
	}
	if obs.MetricsEnabled() {
		fmt.Printf("   Metrics:     http://%s%s\n", gateway.Address(), obs.MetricsEndpoint())
	}

	fmt.Println("\nPress Ctrl+C to stop")
}

// printBanner prints a colored ASCII banner using cerberus-red (#dc2626)
func printBanner() {
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			// Not a terminal, skip banner
			return
		}
	} else {
		return
	}

	// Red color: #dc2626 = RGB(220, 38, 38)
	// Use ANSI RGB color mode: \033[38;2;R;G;Bm
	redColor := "\033[38;2;220;38;38m"
	resetColor := "\033[0m"

	banner := `
 ██████╗███████╗██████╗ ██████╗ ███████╗██████╗ ██╗   ██╗███████╗
██╔════╝██╔════╝██╔══██╗██╔══██╗██╔════╝██╔══██╗██║   ██║██╔════╝
██║     █████╗  ██████╔╝██████╔╝█████╗  ██████╔╝██║   ██║███████╗
██║     ██╔══╝  ██╔══██╗██╔══██╗██╔══╝  ██╔══██╗██║   ██║╚════██║
╚██████╗███████╗██║  ██║██████╔╝███████╗██║  ██║╚██████╔╝███████║
 ╚═════╝╚══════╝╚═╝  ╚═╝╚═════╝ ╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝
`
	fmt.Printf("%s%s%s\n", redColor, banner, resetColor)
}

// shouldSkipBanner checks if command should skip banner.
// Informational commands print machine-readable output, so no banner.
func shouldSkipBanner(args []string) bool {
	if len(args) < 2 {
		return false
	}

	for _, arg := range args {
		if arg == "validate" || arg == "schema" || arg == "version" {
			return true
		}
	}
	return false
}

func main() {
	// Skip banner for informational commands (validate, schema, version)
	if !shouldSkipBanner(os.Args) {
		printBanner()
	}

	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("cerberus"),
		kong.Description("Cerberus - Admission-control gateway with true sliding-window rate limiting"),
		kong.UsageOnError(),
	)

	// Initialize logger with CLI flags/env vars (before config loading)
	// Config file logger settings will be applied later where unset
	cleanup, err := initLogger(resolveLogSettings(cli.LogLevel, cli.LogFile, cli.LogFormat).withDefaults())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
