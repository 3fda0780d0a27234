// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/tomtom215/playlog/internal/importer"
	"github.com/tomtom215/playlog/internal/models"
)

// Import accepts a streaming-history export file as multipart form data
// (field "file") and runs it through the import pipeline.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Import.MaxFileBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "multipart form field \"file\" is required", nil)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "upload exceeds the size limit", err)
		return
	}

	result := h.importer.ImportFile(r.Context(), h.requestUserID(r), header.Filename, raw)

	respondJSON(w, importStatusCode(result), &models.APIResponse{
		Status: importStatus(result),
		Data:   result,
	})
}

func importStatus(result *models.ImportResult) string {
	if result.Success {
		return "success"
	}
	return "error"
}

// importStatusCode maps an import outcome to an HTTP status.
func importStatusCode(result *models.ImportResult) int {
	switch {
	case result.Success:
		return http.StatusOK
	case result.Error == importer.ErrDuplicateUpload.Error():
		return http.StatusConflict
	case result.Error == importer.ErrAllDuplicates.Error():
		return http.StatusConflict
	case strings.HasPrefix(result.Error, "invalid export format"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Reconcile removes already-imported plays that duplicate live plays
// within the match window. Safe to run repeatedly.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.ReconcileExisting(r.Context(), h.requestUserID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "reconciliation failed", err)
		return
	}
	respondOK(w, result)
}
