// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package api provides the HTTP surface of the Playlog server: auth,
// import, reconciliation, sync control, and read endpoints, routed with
// Chi.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/playlog/internal/auth"
	"github.com/tomtom215/playlog/internal/config"
	"github.com/tomtom215/playlog/internal/database"
	"github.com/tomtom215/playlog/internal/dedup"
	"github.com/tomtom215/playlog/internal/importer"
	"github.com/tomtom215/playlog/internal/models"
)

// defaultUserID scopes plays when no Spotify identity is configured
// (import-only mode).
const defaultUserID = "default"

// SyncManager is the sync control surface the handlers need.
// Implemented by *sync.Manager.
type SyncManager interface {
	TriggerSync(ctx context.Context) (*models.SyncResult, error)
	Status() (running bool, last *models.SyncResult)
}

// Handler contains dependencies for the API handlers.
type Handler struct {
	db         *database.DB
	importer   *importer.Service
	reconciler *dedup.Reconciler
	syncMgr    SyncManager
	config     *config.Config
	jwtManager *auth.JWTManager
	userID     string
	startTime  time.Time
}

// NewHandler creates the API handler with all required dependencies.
func NewHandler(db *database.DB, importSvc *importer.Service, reconciler *dedup.Reconciler, syncMgr SyncManager, cfg *config.Config, jwtManager *auth.JWTManager) *Handler {
	userID := cfg.Spotify.UserID
	if userID == "" {
		userID = defaultUserID
	}

	return &Handler{
		db:         db,
		importer:   importSvc,
		reconciler: reconciler,
		syncMgr:    syncMgr,
		config:     cfg,
		jwtManager: jwtManager,
		userID:     userID,
		startTime:  time.Now(),
	}
}

// requestUserID returns the user identity from the validated token,
// falling back to the configured identity. The fallback only matters
// for tests that bypass the auth middleware.
func (h *Handler) requestUserID(r *http.Request) string {
	if claims := auth.ClaimsFrom(r.Context()); claims != nil && claims.UserID != "" {
		return claims.UserID
	}
	return h.userID
}

// Health reports server and database health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respondJSON(w, httpStatus, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"status":         status,
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		},
	})
}

// Stats returns per-source play counts for the authenticated user.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetPlayStats(r.Context(), h.requestUserID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load play stats", err)
		return
	}
	respondOK(w, stats)
}

// RecentPlays returns the most recent plays, newest first. Accepts an
// optional limit query parameter.
func (h *Handler) RecentPlays(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be an integer between 1 and 500", nil)
			return
		}
		limit = parsed
	}

	plays, err := h.db.ListRecentPlays(r.Context(), h.requestUserID(r), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load recent plays", err)
		return
	}
	if plays == nil {
		plays = []models.Play{}
	}
	respondOK(w, plays)
}

// Uploads returns the upload audit trail, newest first.
func (h *Handler) Uploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.db.ListUploads(r.Context(), h.requestUserID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load uploads", err)
		return
	}
	if uploads == nil {
		uploads = []models.UploadRecord{}
	}
	respondOK(w, uploads)
}
