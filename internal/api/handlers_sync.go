// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package api

import (
	"net/http"

	"github.com/tomtom215/playlog/internal/models"
)

// TriggerSync runs one live sync immediately.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if !h.config.Spotify.Enabled {
		respondError(w, http.StatusConflict, "SYNC_DISABLED", "spotify sync is not enabled", nil)
		return
	}

	result, err := h.syncMgr.TriggerSync(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "SYNC_ERROR", "sync run failed", err)
		return
	}
	respondOK(w, result)
}

// SyncStatus reports the poller state and last completed run.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	running, last := h.syncMgr.Status()

	respondOK(w, map[string]interface{}{
		"enabled":   h.config.Spotify.Enabled,
		"running":   running,
		"last_sync": lastSyncData(last),
	})
}

func lastSyncData(last *models.SyncResult) interface{} {
	if last == nil {
		return nil
	}
	return last
}
