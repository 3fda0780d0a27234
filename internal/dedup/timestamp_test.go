// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package dedup

import (
	"errors"
	"testing"
	"time"
)

func TestParseExportTime(t *testing.T) {
	t.Run("interprets input as UTC", func(t *testing.T) {
		ts, err := ParseExportTime("2024-03-15 21:30")
		if err != nil {
			t.Fatalf("ParseExportTime() error = %v", err)
		}

		want := time.Date(2024, 3, 15, 21, 30, 0, 0, time.UTC)
		if !ts.Equal(want) {
			t.Errorf("parsed = %s, want %s", ts, want)
		}
		if ts.Location() != time.UTC {
			t.Errorf("location = %s, want UTC", ts.Location())
		}
	})

	t.Run("seconds default to zero", func(t *testing.T) {
		ts, err := ParseExportTime("2024-01-01 00:05")
		if err != nil {
			t.Fatalf("ParseExportTime() error = %v", err)
		}
		if ts.Second() != 0 || ts.Nanosecond() != 0 {
			t.Errorf("seconds should be zero, got %s", ts)
		}
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		a, _ := ParseExportTime("2023-12-31 23:59")
		b, _ := ParseExportTime("2023-12-31 23:59")
		if !a.Equal(b) {
			t.Errorf("same input should yield same instant: %s != %s", a, b)
		}
	})

	t.Run("malformed input fails with typed error", func(t *testing.T) {
		inputs := []string{
			"",
			"not a timestamp",
			"2024-13-01 10:00", // month out of range
			"2024-02-30 10:00", // day out of range
			"2024-01-01 25:00", // hour out of range
			"2024-01-01 10:61", // minute out of range
			"2024-01-01T10:00", // wrong separator
			"2024-01-01 10:00:30", // trailing seconds
		}

		for _, raw := range inputs {
			_, err := ParseExportTime(raw)
			if err == nil {
				t.Errorf("ParseExportTime(%q) should fail", raw)
				continue
			}

			var tsErr *InvalidTimestampError
			if !errors.As(err, &tsErr) {
				t.Errorf("ParseExportTime(%q) error type = %T, want *InvalidTimestampError", raw, err)
				continue
			}
			if tsErr.Raw != raw {
				t.Errorf("error should carry raw input: got %q, want %q", tsErr.Raw, raw)
			}
		}
	})
}
