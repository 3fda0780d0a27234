// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/playlog/internal/models"
)

// InsertUploadRecord writes one upload provenance row. The
// (user_id, fingerprint) unique constraint makes byte-identical
// re-uploads detectable before parsing.
func (db *DB) InsertUploadRecord(ctx context.Context, record *models.UploadRecord) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.UploadedAt.IsZero() {
		record.UploadedAt = time.Now().UTC()
	}

	query := `INSERT INTO upload_records (
		id, user_id, filename, fingerprint, total_plays, inserted_plays, uploaded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		record.ID, record.UserID, record.Filename, record.Fingerprint,
		record.TotalPlays, record.InsertedPlays, record.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload record: %w", err)
	}
	return nil
}

// UploadExists reports whether an upload with the given content
// fingerprint was already accepted for the user.
func (db *DB) UploadExists(ctx context.Context, userID, fingerprint string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM upload_records WHERE user_id = ? AND fingerprint = ?`

	var count int64
	if err := db.conn.QueryRowContext(ctx, query, userID, fingerprint).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check upload fingerprint: %w", err)
	}
	return count > 0, nil
}

// ListUploads returns the user's upload audit trail, newest first.
func (db *DB) ListUploads(ctx context.Context, userID string) ([]models.UploadRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, user_id, filename, fingerprint, total_plays, inserted_plays, uploaded_at
	FROM upload_records
	WHERE user_id = ?
	ORDER BY uploaded_at DESC`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var records []models.UploadRecord
	for rows.Next() {
		var r models.UploadRecord
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Filename, &r.Fingerprint,
			&r.TotalPlays, &r.InsertedPlays, &r.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating upload records: %w", err)
	}
	return records, nil
}
