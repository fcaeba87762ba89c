// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package connectivity derives a reliability-weighted online/offline signal
// from multiple independent reachability probes.
//
// The OS-level online flag is necessary but not sufficient: it is known to
// be optimistic (reports connected while actually unreachable), which would
// cause the orchestrator to attempt syncs that silently fail. The monitor
// therefore corroborates a true flag with several small, cache-busted HTTP
// probes and requires a quorum before declaring high-confidence "online".
// A false flag is trusted immediately: no probing can contradict a downed
// interface.
//
// Status changes pass through hysteresis (a change must be observed on
// consecutive rounds) so a flaky link does not flap subscribers. Polling
// shortens while offline for fast recovery detection and lengthens while
// reliably online; the mapping is the pure function IntervalFor.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/metrics"
)

// Config holds monitor configuration.
type Config struct {
	// Endpoints are the probe URLs. Empty uses DefaultProbeEndpoints.
	Endpoints []string

	// Quorum is the number of probe successes required for high
	// confidence. Default: 2 (of the 3 default endpoints).
	Quorum int

	// ProbeTimeout bounds each individual probe. Default: 3s.
	ProbeTimeout time.Duration

	// FlipThreshold is how many consecutive rounds must agree before a
	// status change is published. Default: 2.
	FlipThreshold int

	// OfflineAfter is how many consecutive all-fail rounds upgrade an
	// offline call from low to high confidence. Default: 3.
	OfflineAfter int

	// Intervals is the adaptive polling cadence.
	Intervals Intervals
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Quorum:        2,
		ProbeTimeout:  3 * time.Second,
		FlipThreshold: 2,
		OfflineAfter:  3,
		Intervals:     DefaultIntervals(),
	}
}

// Monitor evaluates connectivity on an adaptive schedule and notifies
// subscribers on status changes. It implements suture.Service via Serve.
type Monitor struct {
	cfg    Config
	flag   SystemFlag
	prober Prober

	mu         sync.RWMutex
	current    Status
	observed   bool // current has been set at least once
	candidate  Status
	streak     int
	zeroRounds int // consecutive rounds with no probe successes
	subs       map[int]func(Status)
	nextSub    int

	// kick wakes the Serve loop early (manual refresh, interval change).
	kick chan struct{}
}

// NewMonitor creates a Monitor. A nil flag defaults to InterfaceFlag; a nil
// prober defaults to an HTTPProber over the configured endpoints.
func NewMonitor(cfg Config, flag SystemFlag, prober Prober) *Monitor {
	if cfg.Quorum <= 0 {
		cfg.Quorum = 2
	}
	if cfg.FlipThreshold <= 0 {
		cfg.FlipThreshold = 2
	}
	if cfg.OfflineAfter <= 0 {
		cfg.OfflineAfter = 3
	}
	if cfg.Intervals == (Intervals{}) {
		cfg.Intervals = DefaultIntervals()
	}
	if flag == nil {
		flag = InterfaceFlag{}
	}
	if prober == nil {
		prober = NewHTTPProber(cfg.Endpoints, cfg.ProbeTimeout)
	}
	return &Monitor{
		cfg:    cfg,
		flag:   flag,
		prober: prober,
		subs:   make(map[int]func(Status)),
		kick:   make(chan struct{}, 1),
	}
}

// Current returns the last published status. Before the first evaluation it
// reports offline with low confidence.
func (m *Monitor) Current() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers a callback invoked on every published status change.
// The returned function cancels the subscription. Callbacks run on the
// monitor's goroutine and must not block.
func (m *Monitor) Subscribe(fn func(Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Refresh evaluates connectivity immediately and returns the resulting
// published status. Manual refreshes bypass hysteresis: the caller asked
// for a fresh answer, so they get one.
func (m *Monitor) Refresh(ctx context.Context) Status {
	s := m.evaluate(ctx)
	m.apply(s, true)

	// Wake the Serve loop so its next sleep uses the new interval.
	select {
	case m.kick <- struct{}{}:
	default:
	}
	return m.Current()
}

// Serve runs the monitor loop until ctx is canceled.
func (m *Monitor) Serve(ctx context.Context) error {
	logging.Info().
		Int("quorum", m.cfg.Quorum).
		Msg("Connectivity monitor started")

	timer := time.NewTimer(0) // evaluate immediately on startup
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.kick:
		case <-timer.C:
			s := m.evaluate(ctx)
			m.apply(s, false)
		}
		timer.Reset(IntervalFor(m.Current(), m.cfg.Intervals))
	}
}

func (m *Monitor) String() string { return "connectivity-monitor" }

// evaluate performs one connectivity check round.
func (m *Monitor) evaluate(ctx context.Context) Status {
	if !m.flag.Up() {
		// A downed interface is definitive; skip probing.
		m.mu.Lock()
		m.zeroRounds = 0
		m.mu.Unlock()
		return Status{Online: false, Confidence: ConfidenceHigh}
	}

	successes := m.prober.Probe(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case successes >= m.cfg.Quorum:
		m.zeroRounds = 0
		return Status{Online: true, Confidence: ConfidenceHigh}
	case successes > 0:
		m.zeroRounds = 0
		return Status{Online: true, Confidence: ConfidenceMedium}
	default:
		m.zeroRounds++
		conf := ConfidenceLow
		if m.zeroRounds >= m.cfg.OfflineAfter {
			conf = ConfidenceHigh
		}
		return Status{Online: false, Confidence: conf}
	}
}

// apply feeds an observation through hysteresis and publishes a change when
// warranted. force bypasses hysteresis (manual refresh, OS flag down).
func (m *Monitor) apply(s Status, force bool) {
	m.mu.Lock()

	if m.observed && s == m.current {
		m.candidate = s
		m.streak = 0
		m.mu.Unlock()
		return
	}

	// A hard offline call (flag down) is also published immediately.
	immediate := force || !m.observed || (!s.Online && s.Confidence == ConfidenceHigh)

	if !immediate {
		if s == m.candidate {
			m.streak++
		} else {
			m.candidate = s
			m.streak = 1
		}
		if m.streak < m.cfg.FlipThreshold {
			m.mu.Unlock()
			return
		}
	}

	prev := m.current
	m.current = s
	m.observed = true
	m.candidate = s
	m.streak = 0

	online := 0.0
	if s.Online {
		online = 1.0
	}
	metrics.ConnectivityOnline.Set(online)

	subs := make([]func(Status), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	logging.Info().
		Str("from", prev.String()).
		Str("to", s.String()).
		Msg("Connectivity changed")

	for _, fn := range subs {
		fn(s)
	}
}
