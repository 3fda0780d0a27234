// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testSecret satisfies the 32-character minimum for auth.jwt_secret.
const testSecret = "0123456789abcdef0123456789abcdef"

// testHash is a bcrypt hash of "password" at min cost, used only to
// satisfy the required check.
const testHash = "$2a$04$T8tW2EI25EBCjdMIIFOm4uJ7PQ9ovX2PsbmVbd5EuGz2tBpCv3rs2"

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	t.Run("defaults apply without a config file", func(t *testing.T) {
		t.Setenv("PLAYLOG_AUTH_JWT_SECRET", testSecret)
		t.Setenv("PLAYLOG_AUTH_PASSWORD_HASH", testHash)

		cfg, err := LoadFrom("")
		if err != nil {
			t.Fatalf("LoadFrom() error = %v", err)
		}
		if cfg.Server.Port != 8978 {
			t.Errorf("Server.Port = %d, want 8978", cfg.Server.Port)
		}
		if cfg.Import.BatchSize != 100 {
			t.Errorf("Import.BatchSize = %d, want 100", cfg.Import.BatchSize)
		}
		if cfg.Import.MatchWindow != 5*time.Second {
			t.Errorf("Import.MatchWindow = %s, want 5s", cfg.Import.MatchWindow)
		}
		if cfg.Spotify.Enabled {
			t.Error("Spotify.Enabled should default to false")
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		t.Setenv("PLAYLOG_AUTH_JWT_SECRET", testSecret)
		t.Setenv("PLAYLOG_AUTH_PASSWORD_HASH", testHash)

		path := writeConfigFile(t, strings.Join([]string{
			"server:",
			"  port: 9000",
			"import:",
			"  batch_size: 250",
		}, "\n"))

		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("LoadFrom() error = %v", err)
		}
		if cfg.Server.Port != 9000 {
			t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
		}
		if cfg.Import.BatchSize != 250 {
			t.Errorf("Import.BatchSize = %d, want 250", cfg.Import.BatchSize)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("PLAYLOG_AUTH_JWT_SECRET", testSecret)
		t.Setenv("PLAYLOG_AUTH_PASSWORD_HASH", testHash)
		t.Setenv("PLAYLOG_SERVER_PORT", "7001")

		path := writeConfigFile(t, "server:\n  port: 9000\n")

		cfg, err := LoadFrom(path)
		if err != nil {
			t.Fatalf("LoadFrom() error = %v", err)
		}
		if cfg.Server.Port != 7001 {
			t.Errorf("Server.Port = %d, want 7001 (env should win)", cfg.Server.Port)
		}
	})

	t.Run("missing jwt secret fails validation", func(t *testing.T) {
		t.Setenv("PLAYLOG_AUTH_PASSWORD_HASH", testHash)

		if _, err := LoadFrom(""); err == nil {
			t.Fatal("expected validation error for missing jwt_secret")
		}
	})

	t.Run("spotify enabled requires credentials", func(t *testing.T) {
		t.Setenv("PLAYLOG_AUTH_JWT_SECRET", testSecret)
		t.Setenv("PLAYLOG_AUTH_PASSWORD_HASH", testHash)
		t.Setenv("PLAYLOG_SPOTIFY_ENABLED", "true")

		if _, err := LoadFrom(""); err == nil {
			t.Fatal("expected validation error for missing spotify credentials")
		}
	})
}

func TestEnvKeyToPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PLAYLOG_SERVER_PORT", "server.port"},
		{"PLAYLOG_SPOTIFY_CLIENT_ID", "spotify.client_id"},
		{"PLAYLOG_IMPORT_MAX_FILE_BYTES", "import.max_file_bytes"},
		{"PLAYLOG_AUTH_JWT_SECRET", "auth.jwt_secret"},
	}
	for _, tt := range tests {
		if got := envKeyToPath(tt.in); got != tt.want {
			t.Errorf("envKeyToPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateSyncInterval(t *testing.T) {
	cfg := defaultConfig()
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.PasswordHash = testHash
	cfg.Spotify = SpotifyConfig{
		Enabled:      true,
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		UserID:       "user",
		BaseURL:      "https://api.spotify.com",
		TokenURL:     "https://accounts.spotify.com/api/token",
	}
	cfg.Sync.Interval = 10 * time.Second

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for sub-minute sync interval")
	}

	cfg.Sync.Interval = 5 * time.Minute
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
