// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/playlog/internal/logging"
	"github.com/tomtom215/playlog/internal/models"
)

// InsertPlaysBatch inserts plays inside one transaction using
// INSERT ... ON CONFLICT DO NOTHING against the (user_id, track_id,
// played_at) unique constraint.
//
// The DuckDB driver reports true affected-row counts for ON CONFLICT DO
// NOTHING, so the returned inserted count reflects rows actually
// written, not rows attempted; conflict-rejected rows are reported as
// duplicates.
func (db *DB) InsertPlaysBatch(ctx context.Context, plays []models.Play) (inserted, duplicates int, err error) {
	if len(plays) == 0 {
		return 0, 0, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO plays (
		id, user_id, track_id, track_name, artist_name, album_name,
		duration_ms, played_at, source, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Error closing prepared statement")
		}
	}()

	now := time.Now().UTC()
	for i := range plays {
		play := &plays[i]
		if play.ID == uuid.Nil {
			play.ID = uuid.New()
		}
		if play.CreatedAt.IsZero() {
			play.CreatedAt = now
		}

		result, execErr := stmt.ExecContext(ctx,
			play.ID, play.UserID, play.TrackID, play.TrackName, play.ArtistName,
			play.AlbumName, play.DurationMS, play.PlayedAt.UTC(), play.Source, play.CreatedAt,
		)
		if execErr != nil {
			err = fmt.Errorf("failed to insert play at index %d: %w", i, execErr)
			return 0, 0, err
		}

		affected, raErr := result.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("failed to get affected rows: %w", raErr)
			return 0, 0, err
		}
		if affected > 0 {
			inserted++
		} else {
			duplicates++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit play batch: %w", err)
	}

	return inserted, duplicates, nil
}

// CountLivePlaysInWindow counts live-sourced plays for the user with
// played_at in [from, to]. Both bounds are inclusive (BETWEEN), which
// gives the matcher its inclusive-boundary semantics.
func (db *DB) CountLivePlaysInWindow(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM plays
		WHERE user_id = ? AND source = ? AND played_at BETWEEN ? AND ?`

	var count int64
	err := db.conn.QueryRowContext(ctx, query, userID, models.SourceLive, from.UTC(), to.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count live plays in window: %w", err)
	}
	return count, nil
}

// ListImportedPlays returns all imported plays for the user ordered by
// played_at ascending.
func (db *DB) ListImportedPlays(ctx context.Context, userID string) ([]models.Play, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, user_id, track_id, track_name, artist_name, album_name,
		duration_ms, played_at, source, created_at
	FROM plays
	WHERE user_id = ? AND source = ?
	ORDER BY played_at ASC`

	rows, err := db.conn.QueryContext(ctx, query, userID, models.SourceImported)
	if err != nil {
		return nil, fmt.Errorf("failed to list imported plays: %w", err)
	}
	defer rows.Close()

	return scanPlays(rows)
}

// ListRecentPlays returns the user's most recent plays from any source,
// newest first.
func (db *DB) ListRecentPlays(ctx context.Context, userID string, limit int) ([]models.Play, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `SELECT id, user_id, track_id, track_name, artist_name, album_name,
		duration_ms, played_at, source, created_at
	FROM plays
	WHERE user_id = ?
	ORDER BY played_at DESC
	LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent plays: %w", err)
	}
	defer rows.Close()

	return scanPlays(rows)
}

// DeletePlaysByIDs removes the given plays in a single batched delete
// and returns the number of rows actually deleted.
func (db *DB) DeletePlaysByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := "DELETE FROM plays WHERE id IN (" + placeholders + ")"

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete plays: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected, nil
}

// GetPlayStats returns per-source play counts for the user.
func (db *DB) GetPlayStats(ctx context.Context, userID string) (*models.PlayStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT
		COUNT(*) FILTER (WHERE source = ?) AS live,
		COUNT(*) FILTER (WHERE source = ?) AS imported
	FROM plays WHERE user_id = ?`

	stats := &models.PlayStats{UserID: userID}
	err := db.conn.QueryRowContext(ctx, query, models.SourceLive, models.SourceImported, userID).
		Scan(&stats.Live, &stats.Imported)
	if err != nil {
		return nil, fmt.Errorf("failed to get play stats: %w", err)
	}

	stats.Total = stats.Live + stats.Imported
	return stats, nil
}

// scanPlays reads Play rows from a result set.
func scanPlays(rows *sql.Rows) ([]models.Play, error) {
	var plays []models.Play
	for rows.Next() {
		var p models.Play
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.TrackID, &p.TrackName, &p.ArtistName,
			&p.AlbumName, &p.DurationMS, &p.PlayedAt, &p.Source, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plays: %w", err)
	}
	return plays, nil
}
