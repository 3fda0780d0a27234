// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package dedup implements cross-source deduplication of plays.
//
// Playlog ingests the same listening history from two overlapping
// sources: the live Spotify poller (authoritative, second-precision
// timestamps) and bulk streaming-history exports (minute-precision
// timestamps rounded by Spotify's export pipeline). The same real-world
// listen therefore shows up in both streams with timestamps that differ
// by a few seconds, and no exact store constraint can catch it.
//
// This package provides the pieces that close that gap:
//
//   - TrackIdentity derives a stable content hash from track and artist
//     names for records without a native Spotify track ID.
//   - ParseExportTime normalizes the export file's naive "YYYY-MM-DD HH:MM"
//     timestamps to UTC instants.
//   - Matcher probes the live timeline for a play within a tolerance
//     window of a candidate timestamp.
//   - Reconciler partitions imported candidates into kept and removed
//     sets, and prunes already-stored imported plays that duplicate
//     live ones.
//
// Live plays are never filtered or deleted; only imported plays are ever
// removed, and only when a live play independently covers the same event.
package dedup
