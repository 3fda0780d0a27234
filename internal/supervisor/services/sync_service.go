// Playlog - Spotify Listening History Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlog

// Package services adapts Playlog components to the suture.Service
// interface so the supervision tree can manage their lifecycles.
package services

import (
	"context"
)

// StartStopManager is a component with an explicit start/stop lifecycle,
// such as the sync manager.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop()
}

// SyncService wraps the sync manager as a suture service.
type SyncService struct {
	manager StartStopManager
	name    string
}

// NewSyncService creates a supervised wrapper around the sync manager.
func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{
		manager: manager,
		name:    "sync-manager",
	}
}

// Serve starts the manager, blocks until the context is canceled, then
// stops it. Suture treats the returned context error as a clean exit.
func (s *SyncService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	s.manager.Stop()
	return ctx.Err()
}

// String returns the service name for supervisor logs.
func (s *SyncService) String() string {
	return s.name
}
