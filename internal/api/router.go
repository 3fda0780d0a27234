// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/playlog/internal/auth"
)

// Router wires handlers and middleware into the HTTP route tree.
type Router struct {
	handler *Handler
	auth    *auth.Middleware
}

// NewRouter creates a router for the given handler set.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware) *Router {
	return &Router{
		handler: handler,
		auth:    authMiddleware,
	}
}

// Setup builds the route tree.
//
// Route groups:
//   - /api/v1/health, /metrics: unauthenticated, for probes and scraping
//   - /api/v1/auth/token: unauthenticated, strict rate limit
//   - /api/v1/*: bearer-token protected data and control endpoints
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.handler.config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", router.handler.Health)
	})

	// Brute-force protection on the login endpoint.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(5, 5*time.Minute))
		r.Post("/token", router.handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(120, time.Minute))
		r.Use(prometheusMetrics)
		r.Use(router.auth.Authenticate)

		r.Get("/stats", router.handler.Stats)
		r.Get("/plays/recent", router.handler.RecentPlays)
		r.Get("/uploads", router.handler.Uploads)

		r.Post("/import", router.handler.Import)
		r.Post("/reconcile", router.handler.Reconcile)

		r.Post("/sync", router.handler.TriggerSync)
		r.Get("/sync/status", router.handler.SyncStatus)
	})

	return r
}
