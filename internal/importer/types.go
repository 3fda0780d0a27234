// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package importer implements the bulk-import pipeline for Spotify
// streaming-history export files.
//
// An import runs as one linear pass: fingerprint and duplicate-upload
// check, format validation, per-record transform, deduplication against
// the live timeline, batched persistence, and provenance recording.
// Per-record problems are collected into the result; only whole-file
// problems abort the import.
package importer

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrDuplicateUpload is returned when byte-identical content was already
// accepted for the user.
var ErrDuplicateUpload = errors.New("file content was already imported")

// ErrAllDuplicates is returned when every candidate play duplicates an
// existing live play.
var ErrAllDuplicates = errors.New("all plays duplicate existing live plays")

// InvalidFormatError reports a file that does not look like a Spotify
// streaming-history export.
type InvalidFormatError struct {
	Reason string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid export format: %s", e.Reason)
}

// exportFilePattern matches the two filename families Spotify uses for
// listening-history exports: the account-data download
// (StreamingHistory0.json, StreamingHistory_music_0.json, ...) and the
// extended history download (endsong_0.json, ...).
var exportFilePattern = regexp.MustCompile(`^(StreamingHistory[A-Za-z0-9_]*|endsong[A-Za-z0-9_]*)\.json$`)

// ExportRecord is one raw entry in a streaming-history export file.
type ExportRecord struct {
	// EndTime is a naive "YYYY-MM-DD HH:MM" timestamp, emitted in UTC.
	EndTime    string `json:"endTime"`
	ArtistName string `json:"artistName"`
	TrackName  string `json:"trackName"`

	// MSPlayed is how long the track actually played. Zero means the
	// track was skipped or aborted and is not a play.
	MSPlayed int64 `json:"msPlayed"`
}

// requiredFields are the keys the first record must carry for the file
// to be accepted as an export.
var requiredFields = []string{"endTime", "artistName", "trackName", "msPlayed"}
