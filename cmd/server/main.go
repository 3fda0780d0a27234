// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package main is the entry point for the Playlog server application.
//
// Playlog is a self-hosted Spotify listening history tracker. It keeps a
// single continuous play history in DuckDB by combining two sources:
// live plays polled from the Spotify recently-played API and bulk
// imports of Spotify data-export files. The reconciliation engine keeps
// the two from producing duplicate rows.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Database: DuckDB with the plays and uploads schema
//  3. Spotify client: rate-limited HTTP client behind a circuit breaker
//  4. Sync manager: fixed-interval recently-played poller
//  5. Import service: export-file pipeline with cross-source dedup
//  6. Authentication: bcrypt operator password, JWT session tokens
//  7. HTTP server: Chi REST API with Prometheus metrics
//
// Long-running services are managed by a suture supervision tree so a
// crashing poller restarts without taking the API down.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (PLAYLOG_ prefix)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Import-Only Mode
//
// Playlog runs without Spotify credentials when SPOTIFY_ENABLED=false.
// In that mode the poller stays idle and history comes entirely from
// uploaded export files.
//
// Required for live sync:
//   - PLAYLOG_SPOTIFY_ENABLED=true
//   - PLAYLOG_SPOTIFY_CLIENT_ID, PLAYLOG_SPOTIFY_CLIENT_SECRET
//   - PLAYLOG_SPOTIFY_REFRESH_TOKEN (from a one-time authorization flow)
//   - PLAYLOG_SPOTIFY_USER_ID
//
// Always required:
//   - PLAYLOG_AUTH_JWT_SECRET: 32+ character secret for token signing
//   - PLAYLOG_AUTH_PASSWORD_HASH: bcrypt hash of the operator password
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Stops the sync manager and closes the database
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/playlog/internal/api"
	"github.com/tomtom215/playlog/internal/auth"
	"github.com/tomtom215/playlog/internal/config"
	"github.com/tomtom215/playlog/internal/database"
	"github.com/tomtom215/playlog/internal/dedup"
	"github.com/tomtom215/playlog/internal/importer"
	"github.com/tomtom215/playlog/internal/logging"
	"github.com/tomtom215/playlog/internal/supervisor"
	"github.com/tomtom215/playlog/internal/supervisor/services"
	"github.com/tomtom215/playlog/internal/sync"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("Invalid configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Playlog")

	if cfg.Spotify.Enabled {
		logging.Info().
			Str("spotify_user", cfg.Spotify.UserID).
			Dur("sync_interval", cfg.Sync.Interval).
			Str("db_path", cfg.Database.Path).
			Msg("Configuration loaded")
	} else {
		logging.Info().
			Bool("spotify_enabled", false).
			Str("db_path", cfg.Database.Path).
			Msg("Configuration loaded (import-only mode)")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Spotify client behind a circuit breaker so an API outage cannot
	// cascade into the poller.
	var spotifyClient sync.SpotifyClientInterface
	if cfg.Spotify.Enabled {
		spotifyClient = sync.NewCircuitBreakerClient(&cfg.Spotify, cfg.Sync.RequestsPerSecond)
		if err := spotifyClient.Ping(context.Background()); err != nil {
			logging.Warn().Err(err).Msg("Failed to connect to Spotify API (will retry)")
		} else {
			logging.Info().Msg("Connected to Spotify API successfully")
		}
	} else {
		logging.Info().Msg("Spotify sync disabled - running in import-only mode")
	}

	reconciler := dedup.NewReconciler(db, cfg.Import.MatchWindow)
	importService := importer.NewService(db, reconciler, &cfg.Import)

	syncManager := sync.NewManager(db, spotifyClient, cfg)

	jwtManager, err := auth.NewJWTManager(&cfg.Auth)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	authMiddleware := auth.NewMiddleware(jwtManager)

	handler := api.NewHandler(db, importService, reconciler, syncManager, cfg, jwtManager)
	router := api.NewRouter(handler, authMiddleware)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Context canceled on shutdown signal; the supervisor tree propagates
	// the cancellation to every service.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddSyncService(services.NewSyncService(syncManager))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel so shutdown errors are not lost.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
