// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/fiscus/internal/connectivity"
	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/metrics"
	"github.com/tomtom215/fiscus/internal/queue"
)

// Orchestrator states.
const (
	StateIdle int32 = iota
	StateRunning
)

// RunResult reports one full sync run. Each step carries its own error:
// a failed pull never blocks the push, and a failed push never blocks
// draining the delete queue.
type RunResult struct {
	// Skipped is true when the run was coalesced into one already in
	// flight, or no owner identity was present. All other fields are zero.
	Skipped bool

	Pull    PullResult
	PullErr error

	Push    PushResult
	PushErr error

	Drain    queue.DrainResult
	DrainErr error

	Duration time.Duration
}

// Failed reports whether any step of a non-skipped run errored.
func (r RunResult) Failed() bool {
	return r.PullErr != nil || r.PushErr != nil || r.DrainErr != nil
}

// Orchestrator serialises full sync runs: pull, then push, then drain the
// delete queue. Runs are single-flight; a trigger arriving while a run is
// in progress is a no-op. Triggers come from connectivity recovery,
// identity establishment, the periodic scheduler, and manual calls.
type Orchestrator struct {
	puller   *Puller
	pusher   *Pusher
	queue    *queue.Queue
	backend  Backend
	identity Identity

	state atomic.Int32
}

// NewOrchestrator wires an orchestrator over the engine's collaborators.
func NewOrchestrator(eng *Engine, cfg Config) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		puller:   NewPuller(eng.store, eng.backend, cfg.PullLimit),
		pusher:   eng.pusher,
		queue:    eng.queue,
		backend:  eng.backend,
		identity: eng.identity,
	}
}

// Running reports whether a sync run is currently in flight.
func (o *Orchestrator) Running() bool {
	return o.state.Load() == StateRunning
}

// RunOnce executes one full sync run. Concurrent calls coalesce: all but
// the first return immediately with Skipped set. RunOnce never returns an
// error for remote failures; those live in the result. The error return is
// reserved for local store corruption.
func (o *Orchestrator) RunOnce(ctx context.Context) (RunResult, error) {
	if !o.state.CompareAndSwap(StateIdle, StateRunning) {
		metrics.RecordRunResult("skipped")
		return RunResult{Skipped: true}, nil
	}
	defer o.state.Store(StateIdle)

	owner, ok := o.identity.CurrentOwnerID(ctx)
	if !ok {
		metrics.RecordRunResult("no_identity")
		return RunResult{Skipped: true}, nil
	}

	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)
	start := time.Now()
	log.Info().Str("owner_id", owner).Msg("Sync run started")

	var res RunResult

	res.Pull, res.PullErr = o.puller.Pull(ctx, owner)
	if res.PullErr != nil {
		log.Warn().Err(res.PullErr).Msg("Pull step failed")
	}

	res.Push, res.PushErr = o.pusher.Push(ctx, owner)
	if res.PushErr != nil {
		log.Warn().Err(res.PushErr).Msg("Push step failed")
	}

	res.Drain, res.DrainErr = o.queue.Drain(ctx, o.backend)
	if res.DrainErr != nil {
		log.Warn().Err(res.DrainErr).Msg("Delete queue drain failed")
	}

	res.Duration = time.Since(start)
	metrics.SyncRunDuration.Observe(res.Duration.Seconds())
	if res.Failed() {
		metrics.RecordRunResult("partial")
	} else {
		metrics.RecordRunResult("ok")
	}

	log.Info().
		Int("pulled", res.Pull.Merged).
		Int("pushed", res.Push.Pushed).
		Int("deletes_replayed", res.Drain.Replayed).
		Dur("duration", res.Duration).
		Bool("clean", !res.Failed()).
		Msg("Sync run finished")

	return res, nil
}

// TriggerAsync starts a sync run in the background. Used by event-driven
// triggers that must not block the caller.
func (o *Orchestrator) TriggerAsync(ctx context.Context, reason string) {
	go func() {
		logging.Ctx(ctx).Debug().Str("reason", reason).Msg("Sync triggered")
		if _, err := o.RunOnce(ctx); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("reason", reason).Msg("Sync run aborted")
		}
	}()
}

// OnConnectivityChange is wired as a connectivity.Monitor subscriber.
// Only a high-confidence return to online triggers a run; flapping and
// low-confidence transitions do not.
func (o *Orchestrator) OnConnectivityChange(ctx context.Context) func(connectivity.Status) {
	return func(s connectivity.Status) {
		if s.ReliablyOnline() {
			o.TriggerAsync(ctx, "connectivity_recovered")
		}
	}
}

// OnIdentityEstablished triggers a run when an owner signs in.
func (o *Orchestrator) OnIdentityEstablished(ctx context.Context) {
	o.TriggerAsync(ctx, "identity_established")
}
