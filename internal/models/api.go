// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package models

import "time"

// APIResponse is the envelope for all JSON API responses.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the structured error body.
//
// Common codes: VALIDATION_ERROR, AUTHENTICATION_ERROR, DUPLICATE_UPLOAD,
// ALL_DUPLICATES, DATABASE_ERROR, SYNC_DISABLED.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
