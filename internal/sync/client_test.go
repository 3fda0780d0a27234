// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/playlog/internal/config"
)

// newSpotifyStub runs a stub Spotify API plus token endpoint. handler
// serves everything except /api/token.
func newSpotifyStub(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *config.SpotifyConfig) {
	t.Helper()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/token" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token": "test-token", "token_type": "Bearer", "expires_in": 3600}`)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := &config.SpotifyConfig{
		Enabled:      true,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "refresh-token",
		UserID:       "alice",
		BaseURL:      server.URL,
		TokenURL:     server.URL + "/api/token",
	}
	return server, cfg
}

const recentlyPlayedBody = `{
	"items": [
		{
			"track": {
				"id": "4uLU6hMCjMI75M1A2tKUQC",
				"name": "Roygbiv",
				"duration_ms": 158000,
				"album": {"name": "Music Has the Right to Children"},
				"artists": [{"name": "Boards of Canada"}]
			},
			"played_at": "2024-06-01T12:00:00.000Z"
		}
	]
}`

func TestClientGetRecentlyPlayed(t *testing.T) {
	var gotAuth atomic.Value
	_, cfg := newSpotifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me/player/recently-played" {
			http.NotFound(w, r)
			return
		}
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, recentlyPlayedBody)
	})

	client := NewClient(cfg, 0)
	recent, err := client.GetRecentlyPlayed(context.Background(), 50)
	if err != nil {
		t.Fatalf("GetRecentlyPlayed() error = %v", err)
	}

	if auth, _ := gotAuth.Load().(string); auth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token from token endpoint", auth)
	}
	if len(recent.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(recent.Items))
	}

	item := recent.Items[0]
	if item.Track.Name != "Roygbiv" || item.Track.Artists[0].Name != "Boards of Canada" {
		t.Errorf("unexpected track: %+v", item.Track)
	}
	if item.Track.DurationMS != 158000 {
		t.Errorf("duration = %d, want 158000", item.Track.DurationMS)
	}
	if item.PlayedAt != "2024-06-01T12:00:00.000Z" {
		t.Errorf("played_at = %q", item.PlayedAt)
	}
}

func TestClientRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	_, cfg := newSpotifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, recentlyPlayedBody)
	})

	client := NewClient(cfg, 0)
	recent, err := client.GetRecentlyPlayed(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetRecentlyPlayed() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (one 429 then success)", calls.Load())
	}
	if len(recent.Items) != 1 {
		t.Errorf("items = %d, want 1", len(recent.Items))
	}
}

func TestClientRefreshesTokenOn401(t *testing.T) {
	var calls atomic.Int32
	_, cfg := newSpotifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, recentlyPlayedBody)
	})

	client := NewClient(cfg, 0)
	if _, err := client.GetRecentlyPlayed(context.Background(), 10); err != nil {
		t.Fatalf("GetRecentlyPlayed() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (401 then retry with fresh token)", calls.Load())
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	_, cfg := newSpotifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"status": 503, "message": "Service unavailable"}}`, http.StatusServiceUnavailable)
	})

	client := NewClient(cfg, 0)
	if _, err := client.GetRecentlyPlayed(context.Background(), 10); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

// The client appends /v1/... to the configured base URL, so the default
// base URL must be the bare API root or every request path doubles the
// version segment.
func TestDefaultBaseURLMatchesClientPaths(t *testing.T) {
	t.Setenv("PLAYLOG_AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PLAYLOG_AUTH_PASSWORD_HASH", "$2a$04$T8tW2EI25EBCjdMIIFOm4uJ7PQ9ovX2PsbmVbd5EuGz2tBpCv3rs2")

	loaded, err := config.LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.Spotify.BaseURL != defaultBaseURL {
		t.Errorf("config default base URL = %q, want %q", loaded.Spotify.BaseURL, defaultBaseURL)
	}
	if strings.HasSuffix(loaded.Spotify.BaseURL, "/v1") {
		t.Errorf("config default base URL %q must not carry a version suffix", loaded.Spotify.BaseURL)
	}

	var gotPath atomic.Value
	_, cfg := newSpotifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, recentlyPlayedBody)
	})

	client := NewClient(cfg, 0)
	if _, err := client.GetRecentlyPlayed(context.Background(), 10); err != nil {
		t.Fatalf("GetRecentlyPlayed() error = %v", err)
	}
	if path, _ := gotPath.Load().(string); path != "/v1/me/player/recently-played" {
		t.Errorf("request path = %q, want /v1/me/player/recently-played", path)
	}
}

func TestClientPing(t *testing.T) {
	_, cfg := newSpotifyStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"id": "alice"}`)
	})

	client := NewClient(cfg, 0)
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
