// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package sync polls the Spotify Web API for recently played tracks and
// records them as live plays.
//
// The poller runs on a fixed interval and always fetches the most recent
// window of plays; the (user_id, track_id, played_at) conflict key in the
// database makes overlapping fetches idempotent. Live plays are never
// filtered against the deduplication window, they are the authoritative
// timeline that imported plays are matched against.
//
// Outbound requests go through a token source (refresh-token grant with
// single-flight renewal), a client-side rate limiter, and a circuit
// breaker that sheds load when the API is unavailable.
package sync
