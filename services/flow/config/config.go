// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the flow service configuration.
//
// Configuration is a YAML file overlaid with environment variables, so
// secrets (the remote API key) never need to live on disk. Load caps
// the file at 1 MiB and rejects structurally invalid configs before
// anything else starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileSize caps config files read from disk.
const MaxConfigFileSize = 1 << 20

// Duration wraps time.Duration so YAML configs can say "500ms" or "30s".
// Bare integers are taken as nanoseconds, matching time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var asInt int64
	if err := value.Decode(&asInt); err == nil {
		*d = Duration(asInt)
		return nil
	}
	var asString string
	if err := value.Decode(&asString); err != nil {
		return fmt.Errorf("duration must be a string or integer, got %q", value.Value)
	}
	parsed, err := time.ParseDuration(asString)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", asString, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Environment variable overrides, applied after the file is parsed.
const (
	EnvBaseURL = "FLOW_REMOTE_BASE_URL"
	EnvAPIKey  = "FLOW_REMOTE_API_KEY"
	EnvStrict  = "FLOW_STRICT"
)

// Config is the root configuration.
type Config struct {
	Remote  RemoteConfig  `yaml:"remote" validate:"required"`
	Engine  EngineConfig  `yaml:"engine"`
	Catalog CatalogConfig `yaml:"catalog"`
	Logging LoggingConfig `yaml:"logging"`
}

// RemoteConfig points at the remote workflow service.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// APIKey is usually injected via FLOW_REMOTE_API_KEY rather than
	// stored in the file.
	APIKey            string   `yaml:"api_key,omitempty"`
	MaxRetries        int      `yaml:"max_retries" validate:"gte=0,lte=20"`
	BaseDelay         Duration `yaml:"base_delay" validate:"gte=0"`
	MaxDelay          Duration `yaml:"max_delay" validate:"gte=0"`
	RequestsPerSecond float64  `yaml:"requests_per_second" validate:"gte=0"`
}

// EngineConfig tunes the diff engine.
type EngineConfig struct {
	// Strict disables lenient auto-fixing.
	Strict bool `yaml:"strict"`
}

// CatalogConfig selects the node-type catalog.
type CatalogConfig struct {
	// Path points at a custom catalog file; empty uses the embedded one.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig mirrors pkg/logging.Config.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	LogDir string `yaml:"log_dir,omitempty"`
	JSON   bool   `yaml:"json"`
}

// DefaultConfig returns the stock configuration: local remote endpoint,
// default retry budget, embedded catalog, info logging.
func DefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			BaseURL:    "http://localhost:5678",
			MaxRetries: 3,
			BaseDelay:  Duration(time.Second),
			MaxDelay:   Duration(30 * time.Second),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Load reads path, overlays the environment, and validates the result.
// A missing file is not an error; the defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		info, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overlay
		case err != nil:
			return nil, fmt.Errorf("stat config: %w", err)
		case info.Size() > MaxConfigFileSize:
			return nil, fmt.Errorf("config file %s exceeds %d bytes", path, MaxConfigFileSize)
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := configValidator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Remote.APIKey = v
	}
	if v := os.Getenv(EnvStrict); v != "" {
		if strict, err := strconv.ParseBool(v); err == nil {
			cfg.Engine.Strict = strict
		}
	}
}
