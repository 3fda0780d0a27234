// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package services

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer is the subset of *http.Server the wrapper needs.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService wraps an HTTP server as a suture service.
type HTTPService struct {
	server          HTTPServer
	name            string
	shutdownTimeout time.Duration
}

// NewHTTPService creates a supervised wrapper around the HTTP server.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{
		server:          server,
		name:            "http-server",
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve runs the server until it fails or the context is canceled. On
// cancellation the server gets a fresh timeout context for graceful
// shutdown, since the parent context is already dead.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// String returns the service name for supervisor logs.
func (s *HTTPService) String() string {
	return s.name
}
