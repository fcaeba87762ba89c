// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/store"
)

// StoreGCService runs the store's value log garbage collection on a fixed
// interval. Badger requires the caller to drive GC; it never runs its own.
type StoreGCService struct {
	store    *store.Store
	interval time.Duration
}

// NewStoreGCService creates the GC service. A zero interval defaults to 30m.
func NewStoreGCService(st *store.Store, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &StoreGCService{store: st, interval: interval}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	log := logging.Ctx(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.store.RunGC(ctx); err != nil {
				log.Warn().Err(err).Msg("Store value log GC failed")
			}
		}
	}
}

func (s *StoreGCService) String() string { return "store-gc" }

// MetricsService serves the Prometheus scrape endpoint.
type MetricsService struct {
	listen string
}

// NewMetricsService creates a service listening on addr.
func NewMetricsService(addr string) *MetricsService {
	return &MetricsService{listen: addr}
}

// Serve implements suture.Service. The server shuts down gracefully when
// the context is canceled.
func (s *MetricsService) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              s.listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logging.Ctx(ctx).Info().Str("listen", s.listen).Msg("Metrics server started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *MetricsService) String() string { return "metrics-server" }
