// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package engine

import (
	"context"
	"time"

	"github.com/tomtom215/fiscus/internal/connectivity"
	"github.com/tomtom215/fiscus/internal/logging"
)

// Scheduler drives the orchestrator: a periodic run while reliably
// online, plus an event-driven run on each high-confidence return to
// connectivity. It runs as a suture service.
type Scheduler struct {
	orch     *Orchestrator
	monitor  *connectivity.Monitor
	interval time.Duration
}

// NewScheduler creates a Scheduler triggering a periodic run every interval.
func NewScheduler(orch *Orchestrator, monitor *connectivity.Monitor, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{orch: orch, monitor: monitor, interval: interval}
}

// Serve blocks until ctx is cancelled, triggering sync runs on the
// periodic tick and on connectivity recovery. Implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	log := logging.Ctx(ctx)
	log.Info().Dur("interval", s.interval).Msg("Sync scheduler started")

	unsubscribe := s.monitor.Subscribe(s.orch.OnConnectivityChange(ctx))
	defer unsubscribe()

	// Catch up immediately if we start online; a device that was offline
	// for days should not wait a full interval after boot.
	if s.monitor.Current().ReliablyOnline() {
		s.orch.TriggerAsync(ctx, "startup")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Sync scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if !s.monitor.Current().ReliablyOnline() {
				log.Debug().Msg("Skipping periodic sync, not reliably online")
				continue
			}
			if _, err := s.orch.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("Periodic sync run aborted")
			}
		}
	}
}

func (s *Scheduler) String() string { return "sync-scheduler" }
