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

package main

import (
	"fmt"
	"os"

	"github.com/kadirpekel/cerberus/pkg/config"
	"github.com/kadirpekel/cerberus/pkg/logger"
)

const (
	// LogFileEnvVar is the environment variable name for log file path
	LogFileEnvVar = "LOG_FILE"
	// LogLevelEnvVar is the environment variable name for log level
	LogLevelEnvVar = "LOG_LEVEL"
	// LogFormatEnvVar is the environment variable name for log format
	LogFormatEnvVar = "LOG_FORMAT"
	// DefaultLogFormat is the default log format
	DefaultLogFormat = "simple"
)

// logSettings are the effective logging knobs after merging CLI flags over
// environment variables. An empty field was not requested by either.
type logSettings struct {
	Level  string
	File   string
	Format string
}

// resolveLogSettings merges CLI flags over environment variables.
// Priority: CLI flags > env vars.
func resolveLogSettings(cliLevel, cliFile, cliFormat string) logSettings {
	s := logSettings{Level: cliLevel, File: cliFile, Format: cliFormat}
	if s.Level == "" {
		s.Level = os.Getenv(LogLevelEnvVar)
	}
	if s.File == "" {
		s.File = os.Getenv(LogFileEnvVar)
	}
	if s.Format == "" {
		s.Format = os.Getenv(LogFormatEnvVar)
	}
	return s
}

// withDefaults fills any gap nothing else claimed.
func (s logSettings) withDefaults() logSettings {
	if s.Level == "" {
		s.Level = "info"
	}
	if s.Format == "" {
		s.Format = DefaultLogFormat
	}
	return s
}

// initLogger configures the process logger from the given settings.
// Returns a cleanup function when a log file was opened, nil otherwise.
func initLogger(s logSettings) (func(), error) {
	level, err := logger.ParseLevel(s.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if s.File != "" {
		file, cleanupFn, err := logger.OpenLogFile(s.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(level, output, s.Format)
	return cleanup, nil
}

// applyLoggerConfig layers config file logger settings under whatever the
// CLI and environment already requested, re-initializing the logger when
// the config file contributes anything.
func applyLoggerConfig(cli *CLI, cfg *config.LoggerConfig) (func(), error) {
	s := resolveLogSettings(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if cfg == nil {
		return nil, nil
	}

	changed := false
	if s.Level == "" && cfg.Level != "" {
		s.Level = cfg.Level
		changed = true
	}
	if s.File == "" && cfg.File != "" {
		s.File = cfg.File
		changed = true
	}
	if s.Format == "" && cfg.Format != "" {
		s.Format = cfg.Format
		changed = true
	}
	if !changed {
		return nil, nil
	}

	return initLogger(s.withDefaults())
}
