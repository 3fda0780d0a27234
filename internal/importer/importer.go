// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playlog/internal/config"
	"github.com/tomtom215/playlog/internal/dedup"
	"github.com/tomtom215/playlog/internal/logging"
	"github.com/tomtom215/playlog/internal/metrics"
	"github.com/tomtom215/playlog/internal/models"
)

// Store is the persistence surface the import pipeline needs.
type Store interface {
	UploadExists(ctx context.Context, userID, fingerprint string) (bool, error)
	InsertPlaysBatch(ctx context.Context, plays []models.Play) (inserted, duplicates int, err error)
	InsertUploadRecord(ctx context.Context, record *models.UploadRecord) error
}

// PlayFilter removes candidates that duplicate existing live plays.
// Implemented by *dedup.Reconciler.
type PlayFilter interface {
	FilterAgainstLive(ctx context.Context, candidates []models.Play) (kept []models.Play, removed int)
}

// Service runs streaming-history imports.
type Service struct {
	store  Store
	filter PlayFilter
	cfg    *config.ImportConfig
}

// NewService creates an import service.
func NewService(store Store, filter PlayFilter, cfg *config.ImportConfig) *Service {
	return &Service{store: store, filter: filter, cfg: cfg}
}

// ImportFile runs one import attempt for the user. The returned result
// always carries counts that reflect what actually happened; on failure
// its Error field holds the single top-level reason.
//
// Whole-file failures (duplicate upload, invalid format, all duplicates)
// abort before any persistence. Per-record problems and per-batch insert
// failures are collected without aborting the rest of the file.
func (s *Service) ImportFile(ctx context.Context, userID, filename string, raw []byte) *models.ImportResult {
	start := time.Now()
	result := &models.ImportResult{}

	finish := func(outcome string) *models.ImportResult {
		result.ElapsedMS = time.Since(start).Milliseconds()
		metrics.ImportsTotal.WithLabelValues(outcome).Inc()
		return result
	}
	fail := func(outcome string, err error) *models.ImportResult {
		result.Success = false
		result.Error = err.Error()
		logging.Warn().
			Err(err).
			Str("user_id", userID).
			Str("filename", filename).
			Msg("Import failed")
		return finish(outcome)
	}

	// Step 1: fingerprint and duplicate-upload check, before any parsing.
	sum := sha256.Sum256(raw)
	fingerprint := hex.EncodeToString(sum[:])

	exists, err := s.store.UploadExists(ctx, userID, fingerprint)
	if err != nil {
		return fail("error", fmt.Errorf("failed to check upload fingerprint: %w", err))
	}
	if exists {
		return fail("duplicate_upload", ErrDuplicateUpload)
	}

	// Step 2: format validation.
	rawRecords, err := validateFormat(filename, raw)
	if err != nil {
		return fail("invalid_format", err)
	}

	// Step 3: transform records to candidate plays.
	candidates, parseErrors := s.transform(userID, rawRecords)
	result.TotalPlays = len(candidates)
	result.ParseErrors = parseErrors
	metrics.ImportParseErrors.Add(float64(parseErrors))

	if len(candidates) == 0 {
		return fail("invalid_format", &InvalidFormatError{Reason: "no playable records in file"})
	}

	// Step 4: dedup against the live timeline.
	kept, removed := s.filter.FilterAgainstLive(ctx, candidates)
	result.DuplicatePlays = removed
	metrics.DedupeRemoved.WithLabelValues("import").Add(float64(removed))

	if len(kept) == 0 {
		return fail("all_duplicates", ErrAllDuplicates)
	}

	// Step 5: persist surviving candidates in batches. A failed batch is
	// recorded and skipped; remaining batches still run.
	inserted, conflictRejected, insertErrors := s.persistBatches(ctx, kept)
	result.InsertedPlays = inserted
	result.InsertErrors = insertErrors
	// Conflict-key rejects come from overlap with a previous import
	// (different file, overlapping date range); report them alongside
	// live-timeline duplicates.
	result.DuplicatePlays += conflictRejected
	metrics.ImportPlaysInserted.Add(float64(inserted))

	// Step 6: provenance. A failed provenance write does not flip the
	// import outcome; the plays are already persisted.
	record := &models.UploadRecord{
		UserID:        userID,
		Filename:      filename,
		Fingerprint:   fingerprint,
		TotalPlays:    result.TotalPlays,
		InsertedPlays: result.InsertedPlays,
	}
	if err := s.store.InsertUploadRecord(ctx, record); err != nil {
		logging.Error().
			Err(err).
			Str("user_id", userID).
			Str("filename", filename).
			Msg("Failed to record upload provenance")
	}

	result.Success = true
	logging.Info().
		Str("user_id", userID).
		Str("filename", filename).
		Int("total", result.TotalPlays).
		Int("inserted", result.InsertedPlays).
		Int("duplicates", result.DuplicatePlays).
		Int("parse_errors", result.ParseErrors).
		Int("insert_errors", result.InsertErrors).
		Msg("Import completed")

	return finish("success")
}

// validateFormat checks the filename pattern and the overall file shape,
// returning the undecoded records for per-record parsing.
func validateFormat(filename string, raw []byte) ([]json.RawMessage, error) {
	if !exportFilePattern.MatchString(filename) {
		return nil, &InvalidFormatError{Reason: fmt.Sprintf("unexpected filename %q, want StreamingHistory*.json or endsong*.json", filename)}
	}

	var rawRecords []json.RawMessage
	if err := json.Unmarshal(raw, &rawRecords); err != nil {
		return nil, &InvalidFormatError{Reason: "content is not a JSON array"}
	}
	if len(rawRecords) == 0 {
		return nil, &InvalidFormatError{Reason: "export contains no records"}
	}

	// The first record must carry the required fields; a file that fails
	// this is some other JSON array, not a streaming-history export.
	var first map[string]json.RawMessage
	if err := json.Unmarshal(rawRecords[0], &first); err != nil {
		return nil, &InvalidFormatError{Reason: "first record is not an object"}
	}
	for _, field := range requiredFields {
		if _, ok := first[field]; !ok {
			return nil, &InvalidFormatError{Reason: fmt.Sprintf("first record is missing field %q", field)}
		}
	}

	return rawRecords, nil
}

// transform maps raw export records to candidate plays. Records with a
// malformed shape or timestamp are counted as parse errors; records with
// zero played duration are discarded as non-plays (skips). Neither
// aborts the import.
func (s *Service) transform(userID string, rawRecords []json.RawMessage) (candidates []models.Play, parseErrors int) {
	candidates = make([]models.Play, 0, len(rawRecords))

	for i, rawRecord := range rawRecords {
		var rec ExportRecord
		if err := json.Unmarshal(rawRecord, &rec); err != nil {
			parseErrors++
			logging.Debug().Err(err).Int("index", i).Msg("Skipping malformed export record")
			continue
		}

		if rec.MSPlayed <= 0 {
			continue // skipped or aborted track, not a play
		}

		playedAt, err := dedup.ParseExportTime(rec.EndTime)
		if err != nil {
			parseErrors++
			logging.Debug().Err(err).Int("index", i).Msg("Skipping record with invalid timestamp")
			continue
		}

		candidates = append(candidates, models.Play{
			UserID:     userID,
			TrackID:    dedup.TrackIdentity(rec.TrackName, rec.ArtistName),
			TrackName:  rec.TrackName,
			ArtistName: rec.ArtistName,
			DurationMS: rec.MSPlayed,
			PlayedAt:   playedAt,
			Source:     models.SourceImported,
		})
	}

	return candidates, parseErrors
}

// persistBatches inserts plays in fixed-size batches. Returns the number
// of rows actually inserted, the number rejected by the conflict key,
// and the number lost to failed batches.
func (s *Service) persistBatches(ctx context.Context, plays []models.Play) (inserted, conflictRejected, insertErrors int) {
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	for start := 0; start < len(plays); start += batchSize {
		end := start + batchSize
		if end > len(plays) {
			end = len(plays)
		}
		batch := plays[start:end]

		batchInserted, batchDuplicates, err := s.store.InsertPlaysBatch(ctx, batch)
		if err != nil {
			insertErrors += len(batch)
			logging.Error().
				Err(err).
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Msg("Insert batch failed, continuing with remaining batches")
			continue
		}

		inserted += batchInserted
		conflictRejected += batchDuplicates
	}

	return inserted, conflictRejected, insertErrors
}
