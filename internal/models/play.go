// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package models defines the data structures shared across Playlog:
// plays, upload provenance records, and API result payloads.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Play sources. Live plays come from the Spotify recently-played poller
// and are authoritative; imported plays come from streaming-history
// export files and are subject to cross-source deduplication.
const (
	SourceLive     = "live"
	SourceImported = "imported"
)

// Play represents a single listening event for one user.
//
// The database enforces uniqueness on (user_id, track_id, played_at),
// which makes live-sync ingestion idempotent. Cross-source duplicates
// (the same real-world listen recorded by both the live poller and a
// history export, with timestamps that differ by a few seconds) cannot
// be caught by an exact constraint and are removed algorithmically by
// the dedup package.
//
// Plays are never updated in place. Imported plays may be deleted by the
// reconciler when they match a live play; live plays are never deleted.
type Play struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"user_id"`

	// TrackID is the stable track identity: the Spotify track ID when the
	// source provides one, otherwise a content hash of the normalized
	// track and artist names. Nil when neither is derivable.
	TrackID *string `json:"track_id,omitempty"`

	TrackName  string  `json:"track_name"`
	ArtistName string  `json:"artist_name"`
	AlbumName  *string `json:"album_name,omitempty"`

	// DurationMS is how long the track was actually played, in
	// milliseconds. Always >= 0; imports discard zero-duration records.
	DurationMS int64 `json:"duration_ms"`

	// PlayedAt is the absolute time the play ended, always UTC.
	PlayedAt time.Time `json:"played_at"`

	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// IsImported reports whether the play came from a bulk history import.
func (p *Play) IsImported() bool {
	return p.Source == SourceImported
}

// UploadRecord is the append-only provenance entry for one accepted
// bulk-import file. (user_id, fingerprint) is unique in the store, so a
// byte-identical re-upload is rejected before parsing.
type UploadRecord struct {
	ID       uuid.UUID `json:"id"`
	UserID   string    `json:"user_id"`
	Filename string    `json:"filename"`

	// Fingerprint is the hex SHA-256 of the raw file bytes.
	Fingerprint string `json:"fingerprint"`

	// TotalPlays is the number of candidate plays parsed from the file.
	TotalPlays int `json:"total_plays"`

	// InsertedPlays is the number of plays actually persisted after
	// deduplication and conflict-key filtering.
	InsertedPlays int `json:"inserted_plays"`

	UploadedAt time.Time `json:"uploaded_at"`
}
