// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package metrics exposes Prometheus instrumentation for Playlog:
// HTTP endpoint latency, live-sync outcomes, import pipeline counters,
// and deduplication activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playlog_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Sync metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlog_sync_runs_total",
			Help: "Total number of live-sync runs by outcome",
		},
		[]string{"outcome"}, // "success", "error"
	)

	SyncPlaysInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_sync_plays_inserted_total",
			Help: "Total number of live plays inserted by the sync poller",
		},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "playlog_sync_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful sync run",
		},
	)

	// Import metrics
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlog_imports_total",
			Help: "Total number of import attempts by outcome",
		},
		[]string{"outcome"}, // "success", "duplicate_upload", "invalid_format", "all_duplicates", "error"
	)

	ImportPlaysInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_import_plays_inserted_total",
			Help: "Total number of imported plays persisted",
		},
	)

	ImportParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_import_parse_errors_total",
			Help: "Total number of export records skipped for malformed fields",
		},
	)

	// Dedup metrics
	DedupeRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlog_dedupe_removed_total",
			Help: "Total number of imported plays removed as cross-source duplicates",
		},
		[]string{"path"}, // "import", "reconcile"
	)

	DedupeMatcherFailOpen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_dedupe_matcher_fail_open_total",
			Help: "Total number of near-duplicate probes that failed open due to store errors",
		},
	)

	// Spotify client metrics
	SpotifyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlog_spotify_requests_total",
			Help: "Total number of Spotify API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "playlog_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlog_token_refreshes_total",
			Help: "Total number of Spotify access-token refreshes by outcome",
		},
		[]string{"outcome"},
	)
)
