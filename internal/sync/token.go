// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playlog/internal/config"
	"github.com/tomtom215/playlog/internal/logging"
	"github.com/tomtom215/playlog/internal/metrics"
)

// tokenExpiryMargin renews the access token slightly before Spotify's
// reported expiry so in-flight requests never race the cutoff.
const tokenExpiryMargin = 30 * time.Second

// defaultTokenURL is Spotify's OAuth token endpoint. Overridable through
// config for tests.
const defaultTokenURL = "https://accounts.spotify.com/api/token"

// TokenSource exchanges the long-lived refresh token for short-lived
// access tokens and caches the result until expiry.
//
// Thread Safety: GetValid is safe for concurrent use. Concurrent callers
// during a refresh block on the mutex and reuse the token the first
// caller obtained (single-flight via double-checked expiry).
type TokenSource struct {
	cfg    *config.SpotifyConfig
	client *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewTokenSource creates a token source for the configured Spotify app.
func NewTokenSource(cfg *config.SpotifyConfig) *TokenSource {
	return &TokenSource{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetValid returns a usable access token, refreshing it first if the
// cached one is missing or within the expiry margin.
func (ts *TokenSource) GetValid(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.accessToken != "" && time.Now().Before(ts.expiresAt.Add(-tokenExpiryMargin)) {
		return ts.accessToken, nil
	}

	if err := ts.refresh(ctx); err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	return ts.accessToken, nil
}

// Invalidate discards the cached token so the next GetValid refreshes.
// Called when the API rejects a request with 401 despite an apparently
// valid token.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.accessToken = ""
	ts.expiresAt = time.Time{}
}

// tokenResponse is the OAuth token endpoint response. Spotify may rotate
// the refresh token; when it does the new value replaces the configured
// one for the remainder of the process lifetime.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// refresh performs the refresh-token grant. Caller must hold ts.mu.
func (ts *TokenSource) refresh(ctx context.Context) error {
	tokenURL := ts.cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", ts.cfg.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(ts.cfg.ClientID, ts.cfg.ClientSecret)

	resp, err := ts.client.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token response contained no access token")
	}

	ts.accessToken = token.AccessToken
	ts.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if token.RefreshToken != "" && token.RefreshToken != ts.cfg.RefreshToken {
		logging.Info().Msg("Spotify rotated the refresh token, adopting new value")
		ts.cfg.RefreshToken = token.RefreshToken
	}

	logging.Debug().Time("expires_at", ts.expiresAt).Msg("Refreshed Spotify access token")
	return nil
}
