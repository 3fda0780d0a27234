// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package config loads and validates Playlog configuration.
//
// Configuration is layered: struct defaults, then an optional YAML file,
// then PLAYLOG_-prefixed environment variables. Later layers override
// earlier ones. See koanf.go for the loading mechanics.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Playlog server.
type Config struct {
	Server   ServerConfig   `koanf:"server" json:"server"`
	Database DatabaseConfig `koanf:"database" json:"database"`
	Spotify  SpotifyConfig  `koanf:"spotify" json:"spotify"`
	Sync     SyncConfig     `koanf:"sync" json:"sync"`
	Import   ImportConfig   `koanf:"import" json:"import"`
	Auth     AuthConfig     `koanf:"auth" json:"auth"`
	Logging  LoggingConfig  `koanf:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host" json:"host"`
	Port    int           `koanf:"port" json:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path, or ":memory:" for tests.
	Path string `koanf:"path" json:"path" validate:"required"`

	// MaxMemory is the DuckDB memory limit, e.g. "1GB".
	MaxMemory string `koanf:"max_memory" json:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads" json:"threads" validate:"min=0"`
}

// SpotifyConfig holds Spotify Web API credentials for the live poller.
//
// The refresh token is obtained once through the Spotify authorization
// flow (out of scope here); the poller only exchanges it for short-lived
// access tokens.
type SpotifyConfig struct {
	Enabled      bool   `koanf:"enabled" json:"enabled"`
	ClientID     string `koanf:"client_id" json:"client_id" validate:"required_if=Enabled true"`
	ClientSecret string `koanf:"client_secret" json:"client_secret" validate:"required_if=Enabled true"`
	RefreshToken string `koanf:"refresh_token" json:"refresh_token" validate:"required_if=Enabled true"`

	// UserID is the Spotify user the poller syncs plays for. Every play
	// row is scoped to this identity.
	UserID string `koanf:"user_id" json:"user_id" validate:"required_if=Enabled true"`

	// BaseURL and TokenURL are overridable for tests.
	BaseURL  string `koanf:"base_url" json:"base_url"`
	TokenURL string `koanf:"token_url" json:"token_url"`
}

// SyncConfig holds live-sync scheduling settings.
type SyncConfig struct {
	// Interval between recently-played polls.
	Interval time.Duration `koanf:"interval" json:"interval"`

	// RequestsPerSecond caps outbound Spotify API calls.
	RequestsPerSecond float64 `koanf:"requests_per_second" json:"requests_per_second"`
}

// ImportConfig holds bulk-import settings.
type ImportConfig struct {
	// BatchSize is the number of plays per insert batch.
	BatchSize int `koanf:"batch_size" json:"batch_size" validate:"min=1"`

	// MaxFileBytes caps the accepted upload size.
	MaxFileBytes int64 `koanf:"max_file_bytes" json:"max_file_bytes" validate:"min=1"`

	// MatchWindow is the tolerance for cross-source duplicate matching.
	// An imported play within this distance of a live play (inclusive)
	// is considered the same listening event.
	MatchWindow time.Duration `koanf:"match_window" json:"match_window" validate:"min=0"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	// JWTSecret signs API session tokens (HMAC-SHA256).
	JWTSecret string `koanf:"jwt_secret" json:"-" validate:"required,min=32"`

	// PasswordHash is the bcrypt hash of the operator password.
	PasswordHash string `koanf:"password_hash" json:"-" validate:"required"`

	// TokenTTL is the session token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl" json:"token_ttl"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" json:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" json:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller" json:"caller"`
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid config: field %s failed %q validation", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Sync.Interval < time.Minute && c.Spotify.Enabled {
		return fmt.Errorf("invalid config: sync.interval %s is below the 1m minimum", c.Sync.Interval)
	}

	return nil
}

// asValidationErrors unwraps validator.ValidationErrors without importing
// errors in every caller.
func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
