// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playlog/internal/auth"
	"github.com/tomtom215/playlog/internal/logging"
)

// loginRequest is the POST /api/v1/auth/token body.
type loginRequest struct {
	Password string `json:"password"`
}

// loginResponse carries the issued session token.
type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Login exchanges the operator password for a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be JSON with a password field", nil)
		return
	}

	if err := auth.CheckPassword(h.config.Auth.PasswordHash, req.Password); err != nil {
		logging.Warn().Str("remote", r.RemoteAddr).Msg("Failed login attempt")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid credentials", nil)
		return
	}

	token, err := h.jwtManager.GenerateToken(h.userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_ERROR", "failed to issue token", err)
		return
	}

	respondOK(w, loginResponse{
		Token:     token,
		ExpiresIn: int64(h.jwtManager.TokenTTL().Seconds()),
	})
}
