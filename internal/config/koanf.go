// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

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
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/playlog/config.yaml",
	"/etc/playlog/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is the prefix for environment variable overrides, e.g.
// PLAYLOG_SERVER_PORT=8080 overrides server.port.
const envPrefix = "PLAYLOG_"

// defaultConfig returns a Config with all defaults applied. Defaults load
// first, then the config file, then environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8978,
			Timeout:     30 * time.Second,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Path:      "/data/playlog.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Spotify: SpotifyConfig{
			Enabled:  false, // standalone (import-only) mode by default
			BaseURL:  "https://api.spotify.com",
			TokenURL: "https://accounts.spotify.com/api/token",
		},
		Sync: SyncConfig{
			Interval:          15 * time.Minute,
			RequestsPerSecond: 2,
		},
		Import: ImportConfig{
			BatchSize:    100,
			MaxFileBytes: 50 << 20, // 50MB, comfortably above the largest known export file
			MatchWindow:  5 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// PLAYLOG_-prefixed environment variables, then validates it.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom loads configuration using the given file path. An empty path
// skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// PLAYLOG_SPOTIFY_CLIENT_ID -> spotify.client_id
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return envKeyToPath(s)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, honoring
// the CONFIG_PATH override. Returns "" when no file is present.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envKeyToPath maps PLAYLOG_SECTION_SOME_KEY to section.some_key.
//
// Section names never contain underscores, so the first underscore after
// the prefix separates the section from the key.
func envKeyToPath(envKey string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(envKey, envPrefix))
	section, key, found := strings.Cut(trimmed, "_")
	if !found {
		return trimmed
	}
	return section + "." + key
}
