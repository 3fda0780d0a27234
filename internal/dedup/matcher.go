// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package dedup

import (
	"context"
	"time"

	"github.com/tomtom215/playlog/internal/logging"
	"github.com/tomtom215/playlog/internal/metrics"
)

// DefaultMatchWindow is the symmetric tolerance around a candidate
// timestamp. Export timestamps have minute precision while live-sync
// timestamps have second precision, so the same listen can differ by a
// few seconds across the two sources.
const DefaultMatchWindow = 5 * time.Second

// LiveIndex is the read-only store surface the matcher probes. Both
// bounds are inclusive.
type LiveIndex interface {
	CountLivePlaysInWindow(ctx context.Context, userID string, from, to time.Time) (int64, error)
}

// Matcher decides whether a candidate play duplicates an existing live
// play for the same user.
type Matcher struct {
	store  LiveIndex
	window time.Duration
}

// NewMatcher creates a matcher over the given live-play index. A
// non-positive window falls back to DefaultMatchWindow.
func NewMatcher(store LiveIndex, window time.Duration) *Matcher {
	if window <= 0 {
		window = DefaultMatchWindow
	}
	return &Matcher{store: store, window: window}
}

// Window returns the configured tolerance window.
func (m *Matcher) Window() time.Duration {
	return m.window
}

// HasNearbyLivePlay reports whether at least one live-sourced play for
// the user falls within the tolerance window around ts (boundaries
// inclusive). Existence alone is sufficient; the matcher never picks
// "the" matching play.
//
// This is a read-only probe. Store failures fail open: the candidate is
// treated as NOT matched, so it survives filtering. Losing a transient
// match is preferable to deleting a legitimately-new imported play on
// the strength of an unreliable check. Live data is never filtered, so
// failing open cannot duplicate live plays.
func (m *Matcher) HasNearbyLivePlay(ctx context.Context, userID string, ts time.Time) bool {
	from := ts.Add(-m.window)
	to := ts.Add(m.window)

	count, err := m.store.CountLivePlaysInWindow(ctx, userID, from, to)
	if err != nil {
		metrics.DedupeMatcherFailOpen.Inc()
		logging.Error().
			Err(err).
			Str("user_id", userID).
			Time("played_at", ts).
			Msg("Near-duplicate probe failed, treating as no match")
		return false
	}

	return count > 0
}
