// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// identityLength is the number of hex characters kept from the content
// hash. 16 chars = 64 bits; collisions are acceptable because the
// identity is a cross-source correlation heuristic, not a primary key.
const identityLength = 16

// TrackIdentity derives a stable content identity from track and artist
// names. Used for records that carry no native Spotify track ID, so that
// the same track correlates across sources regardless of casing or
// surrounding whitespace.
//
// Returns nil when either name is empty after normalization; callers
// fall back to matching on the raw name/artist pair.
func TrackIdentity(trackName, artistName string) *string {
	track := strings.ToLower(strings.TrimSpace(trackName))
	artist := strings.ToLower(strings.TrimSpace(artistName))
	if track == "" || artist == "" {
		return nil
	}

	hash := sha256.Sum256([]byte(track + "|" + artist))
	id := hex.EncodeToString(hash[:])[:identityLength]
	return &id
}
