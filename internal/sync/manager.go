// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/playlog/internal/config"
	"github.com/tomtom215/playlog/internal/dedup"
	"github.com/tomtom215/playlog/internal/logging"
	"github.com/tomtom215/playlog/internal/metrics"
	"github.com/tomtom215/playlog/internal/models"
)

// PlayStore is the persistence surface the poller needs.
type PlayStore interface {
	InsertPlaysBatch(ctx context.Context, plays []models.Play) (inserted, duplicates int, err error)
}

// Manager orchestrates periodic synchronization of recently played
// tracks from Spotify into the plays table.
//
// Thread Safety:
//   - syncMu prevents concurrent sync execution (loop vs. manual trigger)
//   - mu protects shared state (running, lastResult)
type Manager struct {
	db     PlayStore
	client SpotifyClientInterface
	cfg    *config.Config

	running    bool
	lastResult *models.SyncResult
	mu         sync.RWMutex
	syncMu     sync.Mutex
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewManager creates a sync manager. The client may be nil when Spotify
// sync is disabled.
func NewManager(db PlayStore, client SpotifyClientInterface, cfg *config.Config) *Manager {
	logging.Info().
		Bool("enabled", cfg.Spotify.Enabled).
		Dur("interval", cfg.Sync.Interval).
		Msg("Sync manager config loaded")

	return &Manager{
		db:       db,
		client:   client,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic polling loop. Returns an error if the
// manager is already running. When Spotify sync is disabled, Start is a
// no-op and the server runs in import-only mode.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.mu.Unlock()

	if !m.cfg.Spotify.Enabled || m.client == nil {
		logging.Info().Msg("Spotify sync disabled, running in import-only mode")
		return nil
	}

	logging.Info().Msg("Starting sync manager...")

	m.wg.Add(2)

	// Initial sync in the background so server startup is not blocked.
	go func() {
		defer m.wg.Done()
		m.syncMu.Lock()
		_, err := m.syncOnce(ctx)
		m.syncMu.Unlock()
		if err != nil {
			logging.Warn().Err(err).Msg("Initial sync failed (will retry on next tick)")
		}
	}()

	go m.syncLoop(ctx)

	return nil
}

// Stop shuts down the polling loop and waits for in-flight work.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopChan)
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
}

// TriggerSync runs one sync immediately, serialized against the periodic
// loop. Returns the result of the run.
func (m *Manager) TriggerSync(ctx context.Context) (*models.SyncResult, error) {
	if !m.cfg.Spotify.Enabled || m.client == nil {
		return nil, fmt.Errorf("spotify sync is disabled")
	}

	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	return m.syncOnce(ctx)
}

// Status reports whether the loop is running and the last sync result
// (nil before the first completed run).
func (m *Manager) Status() (running bool, last *models.SyncResult) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running, m.lastResult
}

// syncLoop runs the periodic synchronization.
func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Sync.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.syncMu.Lock()
			_, err := m.syncOnce(ctx)
			m.syncMu.Unlock()

			if err != nil {
				logging.Error().Err(err).Msg("Sync failed")
			}
		}
	}
}

// syncOnce fetches the most recent plays and persists them. Overlapping
// fetches are safe: the conflict key rejects plays already recorded, and
// the result reports them as duplicates.
func (m *Manager) syncOnce(ctx context.Context) (*models.SyncResult, error) {
	start := time.Now()

	recent, err := m.client.GetRecentlyPlayed(ctx, recentlyPlayedLimit)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch recently played: %w", err)
	}

	plays := m.toPlays(recent.Items)

	inserted, duplicates, err := m.db.InsertPlaysBatch(ctx, plays)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to insert live plays: %w", err)
	}

	result := &models.SyncResult{
		Fetched:    len(recent.Items),
		Inserted:   inserted,
		Duplicates: duplicates,
		SyncedAt:   start.UTC(),
	}

	m.mu.Lock()
	m.lastResult = result
	m.mu.Unlock()

	metrics.SyncRuns.WithLabelValues("success").Inc()
	metrics.SyncPlaysInserted.Add(float64(inserted))
	metrics.SyncLastSuccess.SetToCurrentTime()

	logging.Info().
		Int("fetched", result.Fetched).
		Int("inserted", result.Inserted).
		Int("duplicates", result.Duplicates).
		Dur("duration", time.Since(start)).
		Msg("Sync completed")

	return result, nil
}

// toPlays converts play history entries to live play rows. Entries with
// an unparseable timestamp are dropped with a warning; everything else
// is recorded verbatim, live plays are never filtered.
func (m *Manager) toPlays(items []PlayedItem) []models.Play {
	plays := make([]models.Play, 0, len(items))

	for i := range items {
		item := &items[i]

		playedAt, err := time.Parse(time.RFC3339, item.PlayedAt)
		if err != nil {
			logging.Warn().Err(err).Str("played_at", item.PlayedAt).Msg("Dropping play with invalid timestamp")
			continue
		}

		artistName := ""
		if len(item.Track.Artists) > 0 {
			artistName = item.Track.Artists[0].Name
		}

		// Local files and podcasts have no track ID; fall back to the
		// same name-derived identity imports use.
		trackID := &item.Track.ID
		if item.Track.ID == "" {
			trackID = dedup.TrackIdentity(item.Track.Name, artistName)
		}

		var albumName *string
		if item.Track.Album.Name != "" {
			albumName = &item.Track.Album.Name
		}

		plays = append(plays, models.Play{
			UserID:     m.cfg.Spotify.UserID,
			TrackID:    trackID,
			TrackName:  item.Track.Name,
			ArtistName: artistName,
			AlbumName:  albumName,
			DurationMS: item.Track.DurationMS,
			PlayedAt:   playedAt.UTC(),
			Source:     models.SourceLive,
		})
	}

	return plays
}
