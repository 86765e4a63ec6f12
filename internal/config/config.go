// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

// Package config loads layered configuration with Koanf v2: built-in
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
	"github.com/kisanlabs/agroadvisor/internal/api"
	"github.com/kisanlabs/agroadvisor/internal/database"
	"github.com/kisanlabs/agroadvisor/internal/ledger"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/agroadvisor/config.yaml",
	"/etc/agroadvisor/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "AGRO_CONFIG_PATH"

// envPrefix marks the environment variables this service reads.
const envPrefix = "AGRO_"

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ArtifactsConfig controls model artifact persistence.
type ArtifactsConfig struct {
	Dir string `koanf:"dir"`

	// Keep bounds how many artifact generations are retained; older
	// ones are pruned after each save. Zero disables pruning.
	Keep int `koanf:"keep"`
}

// LoggingConfig mirrors the logging package settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Config is the full application configuration tree.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Database  database.Config  `koanf:"database"`
	Ledger    ledger.Config    `koanf:"ledger"`
	Artifacts ArtifactsConfig  `koanf:"artifacts"`
	Advisor   advisor.Config   `koanf:"advisor"`
	Router    api.RouterConfig `koanf:"router"`
	Logging   LoggingConfig    `koanf:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8094,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 20 * time.Second,
		},
		Database: database.Config{
			Path:      "/data/agroadvisor.duckdb",
			Threads:   0,
			MaxMemory: "1GB",
		},
		Ledger: ledger.Config{
			Path:       "/data/feedback",
			SyncWrites: true,
		},
		Artifacts: ArtifactsConfig{
			Dir:  "/data/models",
			Keep: 5,
		},
		Advisor: advisor.DefaultConfig(),
		Router:  api.DefaultRouterConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// AGRO_* environment variables, in that precedence order.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the type system cannot.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if !c.Ledger.InMemory && c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required unless ledger.in_memory is set")
	}
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir is required")
	}
	if err := c.Advisor.Validate(); err != nil {
		return fmt.Errorf("advisor: %w", err)
	}
	return nil
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sections are the top-level config groups env vars can address.
var sections = []string{
	"server", "database", "ledger", "artifacts", "advisor", "router", "logging",
}

// envTransform maps AGRO_SERVER_PORT to server.port, AGRO_ADVISOR_MIN_FEEDBACK
// to advisor.min_feedback, and so on. The section name is the first
// underscore-separated token; the rest of the key keeps its underscores.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	for _, section := range sections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	// Unknown keys are ignored by Unmarshal.
	return key
}
