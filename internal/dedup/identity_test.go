// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package dedup

import "testing"

func TestTrackIdentity(t *testing.T) {
	t.Run("deterministic for identical input", func(t *testing.T) {
		a := TrackIdentity("Bohemian Rhapsody", "Queen")
		b := TrackIdentity("Bohemian Rhapsody", "Queen")
		if a == nil || b == nil {
			t.Fatal("identity should not be nil for valid input")
		}
		if *a != *b {
			t.Errorf("identity not deterministic: %s != %s", *a, *b)
		}
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		a := TrackIdentity("Song", "Artist")
		b := TrackIdentity("  song ", "ARTIST")
		if a == nil || b == nil {
			t.Fatal("identity should not be nil for valid input")
		}
		if *a != *b {
			t.Errorf("normalization failed: %s != %s", *a, *b)
		}
	})

	t.Run("distinct tracks get distinct identities", func(t *testing.T) {
		a := TrackIdentity("Song One", "Artist")
		b := TrackIdentity("Song Two", "Artist")
		if *a == *b {
			t.Errorf("different tracks should not collide: %s", *a)
		}
	})

	t.Run("separator prevents boundary ambiguity", func(t *testing.T) {
		a := TrackIdentity("ab", "c")
		b := TrackIdentity("a", "bc")
		if *a == *b {
			t.Error("track/artist boundary should be part of the identity")
		}
	})

	t.Run("empty fields yield nil", func(t *testing.T) {
		if TrackIdentity("", "Artist") != nil {
			t.Error("empty track name should yield nil identity")
		}
		if TrackIdentity("Song", "") != nil {
			t.Error("empty artist name should yield nil identity")
		}
		if TrackIdentity("   ", "Artist") != nil {
			t.Error("whitespace-only track name should yield nil identity")
		}
	})

	t.Run("identity is fixed length", func(t *testing.T) {
		id := TrackIdentity("Song", "Artist")
		if len(*id) != identityLength {
			t.Errorf("identity length = %d, want %d", len(*id), identityLength)
		}
	})
}
