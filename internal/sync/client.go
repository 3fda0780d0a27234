// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/playlog/internal/config"
	"github.com/tomtom215/playlog/internal/metrics"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics.
const maxErrorBodySize = 64 * 1024 // 64KB

// defaultBaseURL is the Spotify Web API root. Overridable through config
// for tests.
const defaultBaseURL = "https://api.spotify.com"

// recentlyPlayedLimit is the maximum page size the recently-played
// endpoint supports.
const recentlyPlayedLimit = 50

// readBodyForError reads a bounded amount of the response body for error
// reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// SpotifyClientInterface defines the Spotify Web API operations the
// poller uses. Implemented by Client for production and by mocks in
// tests.
type SpotifyClientInterface interface {
	Ping(ctx context.Context) error
	GetRecentlyPlayed(ctx context.Context, limit int) (*RecentlyPlayed, error)
}

// RecentlyPlayed is the /v1/me/player/recently-played response.
type RecentlyPlayed struct {
	Items []PlayedItem `json:"items"`
}

// PlayedItem is one play history entry.
type PlayedItem struct {
	Track Track `json:"track"`

	// PlayedAt is an RFC 3339 UTC timestamp marking when the track
	// finished playing.
	PlayedAt string `json:"played_at"`
}

// Track is the track object embedded in a play history entry.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DurationMS int64    `json:"duration_ms"`
	Album      Album    `json:"album"`
	Artists    []Artist `json:"artists"`
}

// Album is the album object embedded in a track.
type Album struct {
	Name string `json:"name"`
}

// Artist is one credited artist on a track.
type Artist struct {
	Name string `json:"name"`
}

// Client handles communication with the Spotify Web API.
//
// Requests are authenticated with a bearer token from the TokenSource,
// rate limited client-side, and retried with exponential backoff on
// HTTP 429 (honoring Retry-After). A 401 invalidates the cached token
// and retries once with a fresh one.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	baseURL        string
	tokens         *TokenSource
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a Spotify API client. requestsPerSecond caps the
// outbound request rate; zero or negative disables the limiter.
func NewClient(cfg *config.SpotifyConfig, requestsPerSecond float64) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &Client{
		baseURL: baseURL,
		tokens:  NewTokenSource(cfg),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:        rate.NewLimiter(limit, 1),
		maxRetries:     5,
		retryBaseDelay: 1 * time.Second,
	}
}

// Ping verifies connectivity and credentials against the profile
// endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, c.baseURL+"/v1/me")
	if err != nil {
		metrics.SpotifyRequests.WithLabelValues("me", "error").Inc()
		return fmt.Errorf("failed to ping Spotify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.SpotifyRequests.WithLabelValues("me", "error").Inc()
		return fmt.Errorf("Spotify ping failed with status: %d", resp.StatusCode)
	}

	metrics.SpotifyRequests.WithLabelValues("me", "success").Inc()
	return nil
}

// GetRecentlyPlayed fetches the user's most recent plays, newest first.
// limit is clamped to the endpoint maximum of 50.
func (c *Client) GetRecentlyPlayed(ctx context.Context, limit int) (*RecentlyPlayed, error) {
	if limit <= 0 || limit > recentlyPlayedLimit {
		limit = recentlyPlayedLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	reqURL := fmt.Sprintf("%s/v1/me/player/recently-played?%s", c.baseURL, params.Encode())

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		metrics.SpotifyRequests.WithLabelValues("recently_played", "error").Inc()
		return nil, fmt.Errorf("failed to fetch recently played: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.SpotifyRequests.WithLabelValues("recently_played", "error").Inc()
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("recently-played request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result RecentlyPlayed
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.SpotifyRequests.WithLabelValues("recently_played", "error").Inc()
		return nil, fmt.Errorf("failed to decode recently-played response: %w", err)
	}

	metrics.SpotifyRequests.WithLabelValues("recently_played", "success").Inc()
	return &result, nil
}

// doRequest performs an authenticated GET with rate limiting, one token
// refresh on 401, and exponential backoff on 429.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error
	refreshed := false

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		token, err := c.tokens.GetValid(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain access token: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			_ = resp.Body.Close()
			if refreshed {
				return nil, fmt.Errorf("request rejected with 401 after token refresh")
			}
			refreshed = true
			c.tokens.Invalidate()
			continue

		case http.StatusTooManyRequests:
			_ = resp.Body.Close()
			if attempt == c.maxRetries {
				lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
				break
			}

			delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
					delay = seconds
				}
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue

		default:
			return resp, nil
		}

		if lastErr != nil {
			break
		}
	}

	return nil, lastErr
}
