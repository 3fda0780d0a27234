// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package models

import "time"

// ImportResult reports the outcome of one import attempt. Counts always
// reflect what actually happened: a partially failed import still
// reports the batches that were persisted.
type ImportResult struct {
	Success bool `json:"success"`

	// TotalPlays is the number of candidate plays parsed from the file
	// (zero-duration records excluded).
	TotalPlays int `json:"total_plays"`

	// InsertedPlays is the number of plays actually written to the store.
	InsertedPlays int `json:"inserted_plays"`

	// DuplicatePlays is the number of candidates removed because a live
	// play already existed within the match window.
	DuplicatePlays int `json:"duplicate_plays"`

	// ParseErrors is the number of records skipped for malformed fields.
	ParseErrors int `json:"parse_errors"`

	// InsertErrors is the number of plays lost to failed persistence batches.
	InsertErrors int `json:"insert_errors"`

	ElapsedMS int64 `json:"elapsed_ms"`

	// Error is the top-level failure reason, empty on success.
	Error string `json:"error,omitempty"`
}

// ReconcileResult reports the outcome of reconciling already-stored
// imported plays against the live timeline.
type ReconcileResult struct {
	Total     int `json:"total"`
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// PlayStats holds per-source play counts for one user.
type PlayStats struct {
	UserID   string `json:"user_id"`
	Live     int64  `json:"live"`
	Imported int64  `json:"imported"`
	Total    int64  `json:"total"`
}

// SyncResult reports the outcome of one live-sync run.
type SyncResult struct {
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Duplicates int       `json:"duplicates"`
	SyncedAt   time.Time `json:"synced_at"`
}
