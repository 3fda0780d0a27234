// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package dedup

import (
	"fmt"
	"time"
)

// exportTimeLayout is the timestamp format used by Spotify streaming
// history exports: naive local-looking strings with no zone marker.
// The export pipeline is known to emit these in UTC.
const exportTimeLayout = "2006-01-02 15:04"

// InvalidTimestampError reports a malformed export timestamp, carrying
// the offending raw string for diagnostics.
type InvalidTimestampError struct {
	Raw string
	Err error
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid export timestamp %q: %v", e.Raw, e.Err)
}

func (e *InvalidTimestampError) Unwrap() error {
	return e.Err
}

// ParseExportTime converts an export timestamp ("YYYY-MM-DD HH:MM") to a
// UTC instant. Seconds default to zero. The input MUST be interpreted as
// UTC, never local time: parsing is deterministic and timezone-stable
// regardless of the host's zone.
//
// Malformed components (non-numeric, out-of-range month/day/hour/minute)
// return an *InvalidTimestampError.
func ParseExportTime(raw string) (time.Time, error) {
	ts, err := time.ParseInLocation(exportTimeLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, &InvalidTimestampError{Raw: raw, Err: err}
	}
	return ts, nil
}
