// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package database provides the DuckDB-backed store for plays and upload
// provenance records.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/playlog/internal/config"
	"github.com/tomtom215/playlog/internal/logging"
)

// queryTimeout bounds store operations that arrive without a deadline.
const queryTimeout = 30 * time.Second

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New creates a new database connection and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists for file-backed databases.
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB is an in-process database; a single writer connection avoids
	// write-write conflicts between the sync poller and import requests.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, cfg: cfg}

	if err := db.createSchema(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Error closing database after failed init")
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return db, nil
}

// Close flushes the WAL with a checkpoint and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}

	return db.conn.Close()
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// ensureContext applies the default query timeout when the caller's
// context carries no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

// createSchema creates tables and indexes.
//
// plays carries the hard uniqueness constraint (user_id, track_id,
// played_at): inserts use ON CONFLICT DO NOTHING against it, which makes
// both live-sync ingestion and re-imports of overlapping files
// idempotent. Cross-source near-duplicates are outside its reach (the
// match key is a time window, not an exact value) and are handled by the
// dedup package.
func (db *DB) createSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS plays (
			id UUID PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			track_id VARCHAR,
			track_name VARCHAR NOT NULL,
			artist_name VARCHAR NOT NULL,
			album_name VARCHAR,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			played_at TIMESTAMP NOT NULL,
			source VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, track_id, played_at)
		)`,
		`CREATE TABLE IF NOT EXISTS upload_records (
			id UUID PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			filename VARCHAR NOT NULL,
			fingerprint VARCHAR NOT NULL,
			total_plays INTEGER NOT NULL,
			inserted_plays INTEGER NOT NULL,
			uploaded_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, fingerprint)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plays_user_source_played
			ON plays (user_id, source, played_at)`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_user
			ON upload_records (user_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}
