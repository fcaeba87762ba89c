// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package main is the entry point for the Fiscus sync daemon.
//
// Fiscus keeps a device's financial records (expenses and incomes) in an
// embedded local store and synchronizes them with a remote backend whenever
// connectivity allows. All reads and writes are local-first: the device is
// fully usable offline, and a background engine reconciles with the remote
// on a last-write-wins basis once it is reliably online.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML file, env)
//  2. Logging: zerolog, level and format from config
//  3. Local store: embedded Badger database holding records, the sync
//     status ledger, and the delete queue
//  4. Remote client: rate-limited HTTP client behind a circuit breaker
//  5. Engine: save/delete operations plus the pull/push/drain orchestrator
//  6. Supervision tree: store GC, connectivity monitor, sync scheduler,
//     and the Prometheus endpoint under suture
//
// # Configuration
//
// Environment variables use the FISCUS_ prefix and override the config
// file, which overrides built-in defaults:
//
//	export FISCUS_REMOTE_BASE_URL=https://api.example.com
//	export FISCUS_REMOTE_API_KEY=secret
//	export FISCUS_SYNC_OWNER_ID=user-123
//	export FISCUS_DATA_DIR=/data/fiscus
//	./fiscus-syncd
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the supervision tree stops
// its services, in-flight sync work observes context cancellation, and the
// store closes cleanly.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/fiscus/internal/config"
	"github.com/tomtom215/fiscus/internal/connectivity"
	"github.com/tomtom215/fiscus/internal/engine"
	"github.com/tomtom215/fiscus/internal/ledger"
	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/queue"
	"github.com/tomtom215/fiscus/internal/remote"
	"github.com/tomtom215/fiscus/internal/store"
	"github.com/tomtom215/fiscus/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config errors use the default logger; config is not available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("base_url", cfg.Remote.BaseURL).
		Str("store_path", cfg.Store.Path).
		Bool("owner_configured", cfg.Sync.OwnerID != "").
		Msg("Configuration loaded")

	st, err := store.Open(cfg.StoreOptions())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open local store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing local store")
		}
	}()
	logging.Info().Msg("Local store opened")

	client := remote.NewClient(cfg.RemoteOptions())
	lg := ledger.New(st)
	q := queue.New(st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := connectivity.NewMonitor(cfg.ConnectivityOptions(), nil, nil)

	identity := &engine.SwitchableIdentity{}

	engCfg := cfg.EngineOptions()
	eng := engine.New(st, lg, q, client, identity, monitor, engCfg)
	orch := engine.NewOrchestrator(eng, engCfg)
	identity.OnEstablish = func(string) {
		orch.OnIdentityEstablished(ctx)
	}

	// Bridges zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddDataService(supervisor.NewStoreGCService(st, cfg.Store.GCInterval))
	tree.AddSyncService(monitor)
	tree.AddSyncService(engine.NewScheduler(orch, monitor, cfg.Sync.Interval))
	if cfg.Metrics.Enabled {
		tree.AddSyncService(supervisor.NewMetricsService(cfg.Metrics.Listen))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// The configured owner, if any, is established after the tree is up so
	// the resulting sync run sees a live connectivity monitor.
	if cfg.Sync.OwnerID != "" {
		identity.Establish(cfg.Sync.OwnerID)
	}

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	deadline := time.After(15 * time.Second)
	for {
		select {
		case err, ok := <-errCh:
			if !ok {
				reportUnstopped(tree)
				logging.Info().Msg("Daemon stopped gracefully")
				return
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Supervisor shutdown error")
			}
		case <-deadline:
			reportUnstopped(tree)
			logging.Warn().Msg("Shutdown deadline exceeded")
			return
		}
	}
}

func reportUnstopped(tree *supervisor.Tree) {
	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
}
