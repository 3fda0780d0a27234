// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/playlog/internal/logging"
	"github.com/tomtom215/playlog/internal/metrics"
	"github.com/tomtom215/playlog/internal/models"
)

// ImportedPlayStore is the store surface the reconciler needs on top of
// the matcher's read-only probe.
type ImportedPlayStore interface {
	LiveIndex

	// ListImportedPlays returns all imported plays for the user ordered
	// by played_at ascending.
	ListImportedPlays(ctx context.Context, userID string) ([]models.Play, error)

	// DeletePlaysByIDs removes the given plays in one batched delete and
	// returns the number of rows actually deleted.
	DeletePlaysByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// Reconciler partitions play candidates into kept and removed sets by
// probing the live timeline, and prunes stored imported plays that
// duplicate live ones.
type Reconciler struct {
	store   ImportedPlayStore
	matcher *Matcher
}

// NewReconciler creates a reconciler using the given store and tolerance
// window.
func NewReconciler(store ImportedPlayStore, window time.Duration) *Reconciler {
	return &Reconciler{
		store:   store,
		matcher: NewMatcher(store, window),
	}
}

// FilterAgainstLive removes candidates that duplicate an existing live
// play. Only imported candidates are subject to filtering; candidates
// with any other source pass through untouched. The reconciler only ever
// receives imported candidates, but mixed input must not be
// miscategorized. Kept candidates preserve their original relative order.
func (r *Reconciler) FilterAgainstLive(ctx context.Context, candidates []models.Play) (kept []models.Play, removed int) {
	kept = make([]models.Play, 0, len(candidates))

	for _, candidate := range candidates {
		if !candidate.IsImported() {
			kept = append(kept, candidate)
			continue
		}

		if r.matcher.HasNearbyLivePlay(ctx, candidate.UserID, candidate.PlayedAt) {
			removed++
			continue
		}
		kept = append(kept, candidate)
	}

	return kept, removed
}

// ReconcileExisting re-runs deduplication over all currently-stored
// imported plays for the user and deletes the ones that duplicate a live
// play. Deletion targets store-assigned IDs, never positions, and runs
// as a single batched delete.
//
// The operation is idempotent: a play only matches a live play that is
// independently present, so a second run finds nothing left to remove.
func (r *Reconciler) ReconcileExisting(ctx context.Context, userID string) (*models.ReconcileResult, error) {
	plays, err := r.store.ListImportedPlays(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load imported plays: %w", err)
	}

	var removeIDs []uuid.UUID
	for i := range plays {
		if r.matcher.HasNearbyLivePlay(ctx, userID, plays[i].PlayedAt) {
			removeIDs = append(removeIDs, plays[i].ID)
		}
	}

	result := &models.ReconcileResult{
		Total:     len(plays),
		Remaining: len(plays),
	}

	if len(removeIDs) == 0 {
		return result, nil
	}

	deleted, err := r.store.DeletePlaysByIDs(ctx, removeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to delete duplicate plays: %w", err)
	}

	result.Removed = int(deleted)
	result.Remaining = result.Total - result.Removed
	metrics.DedupeRemoved.WithLabelValues("reconcile").Add(float64(deleted))

	logging.Info().
		Str("user_id", userID).
		Int("total", result.Total).
		Int("removed", result.Removed).
		Msg("Reconciled imported plays against live timeline")

	return result, nil
}
