// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package metrics provides Prometheus instrumentation for the sync engine:
//
//   - Orchestrator run outcomes and durations
//   - Records pushed/pulled per outcome
//   - Delete queue depth and replay results
//   - Connectivity probe results and derived online state
//   - Circuit breaker state on the remote backend client
//   - Local store operation latency
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Orchestrator metrics

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fiscus_sync_runs_total",
			Help: "Total number of orchestrator runs by result",
		},
		[]string{"result"}, // "ok", "partial", "skipped", "no_identity"
	)

	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fiscus_sync_run_duration_seconds",
			Help:    "Duration of full orchestrator runs (pull + push + drain)",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Push/Pull metrics

	RecordsPushedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fiscus_records_pushed_total",
			Help: "Total number of records successfully upserted to the remote backend",
		},
	)

	PushErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fiscus_push_errors_total",
			Help: "Total number of records that failed to push",
		},
	)

	RecordsPulledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fiscus_records_pulled_total",
			Help: "Total number of remote records processed by pull, by outcome",
		},
		[]string{"outcome"}, // "merged", "skipped", "malformed"
	)

	// Delete queue metrics

	DeleteQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fiscus_delete_queue_depth",
			Help: "Current number of pending delete queue entries",
		},
	)

	DeleteReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fiscus_delete_replays_total",
			Help: "Total number of delete queue replay attempts by result",
		},
		[]string{"result"}, // "replayed", "failed"
	)

	// Connectivity metrics

	ConnectivityOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fiscus_connectivity_online",
			Help: "Derived connectivity state (1 = online, 0 = offline)",
		},
	)

	ProbeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fiscus_probe_results_total",
			Help: "Total number of connectivity probe attempts by endpoint and result",
		},
		[]string{"endpoint", "result"}, // result: "ok", "fail"
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fiscus_circuit_breaker_state",
			Help: "Circuit breaker state (0 = closed, 1 = half-open, 2 = open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fiscus_circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Local store metrics

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fiscus_store_operation_duration_seconds",
			Help:    "Duration of local store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "get", "put", "delete", "scan", "txn"
	)

	LedgerOrphansPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fiscus_ledger_orphans_purged_total",
			Help: "Total number of orphaned ledger entries purged",
		},
	)
)

// RecordStoreOperation records latency for a single store operation.
func RecordStoreOperation(operation string, seconds float64) {
	StoreOperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordRunResult increments the run counter for the given result.
func RecordRunResult(result string) {
	SyncRunsTotal.WithLabelValues(result).Inc()
}
