// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CheckPassword compares the operator password against the configured
// bcrypt hash. The comparison is constant time inside bcrypt.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("invalid credentials")
	}
	return nil
}

// HashPassword produces a bcrypt hash for the given password. Used by
// cmd/hashpw to generate the auth.password_hash config value, not by
// the request path.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
