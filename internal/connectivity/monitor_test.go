// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeProber returns a scripted sequence of success counts, repeating the
// last value once the script runs out.
type fakeProber struct {
	mu     sync.Mutex
	script []int
	pos    int
}

func (p *fakeProber) Probe(context.Context) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos < len(p.script)-1 {
		p.pos++
		return p.script[p.pos-1]
	}
	return p.script[len(p.script)-1]
}

func newTestMonitor(flag SystemFlag, prober Prober) *Monitor {
	return NewMonitor(DefaultConfig(), flag, prober)
}

// step runs one evaluation round the way Serve does.
func step(m *Monitor, force bool) {
	m.apply(m.evaluate(context.Background()), force)
}

func TestInitialStatusIsOfflineLow(t *testing.T) {
	m := newTestMonitor(StaticFlag(true), &fakeProber{script: []int{3}})
	got := m.Current()
	if got.Online || got.Confidence != ConfidenceLow {
		t.Errorf("Current() before first evaluation = %v, want offline/low", got)
	}
}

func TestQuorumGivesHighConfidenceOnline(t *testing.T) {
	m := newTestMonitor(StaticFlag(true), &fakeProber{script: []int{2}})
	step(m, false) // first observation publishes immediately
	got := m.Current()
	if !got.ReliablyOnline() {
		t.Errorf("Current() = %v, want online/high", got)
	}
}

func TestPartialSuccessesGiveMediumConfidence(t *testing.T) {
	m := newTestMonitor(StaticFlag(true), &fakeProber{script: []int{1}})
	step(m, false)
	got := m.Current()
	if !got.Online || got.Confidence != ConfidenceMedium {
		t.Errorf("Current() = %v, want online/medium", got)
	}
}

func TestFlagDownIsDefinitiveOffline(t *testing.T) {
	// Probes would succeed, but the interface is down: never probed.
	m := newTestMonitor(StaticFlag(false), &fakeProber{script: []int{3}})
	step(m, false)
	got := m.Current()
	if got.Online || got.Confidence != ConfidenceHigh {
		t.Errorf("Current() with flag down = %v, want offline/high", got)
	}
}

func TestOfflineConfidenceEscalates(t *testing.T) {
	m := newTestMonitor(StaticFlag(true), &fakeProber{script: []int{0}})

	// Rounds 1 and 2: all probes fail, confidence still low.
	step(m, true)
	if got := m.Current(); got.Online || got.Confidence != ConfidenceLow {
		t.Fatalf("after 1 zero round: %v, want offline/low", got)
	}
	step(m, true)
	if got := m.Current(); got.Confidence != ConfidenceLow {
		t.Fatalf("after 2 zero rounds: %v, want offline/low", got)
	}

	// Round 3 reaches OfflineAfter: high-confidence offline.
	step(m, true)
	if got := m.Current(); got.Online || got.Confidence != ConfidenceHigh {
		t.Errorf("after 3 zero rounds: %v, want offline/high", got)
	}
}

func TestHysteresisSuppressesSingleRoundFlip(t *testing.T) {
	// Quorum, then one bad round, then quorum again: a flaky blip.
	m := newTestMonitor(StaticFlag(true), &fakeProber{script: []int{2, 0, 2}})

	var changes []Status
	m.Subscribe(func(s Status) { changes = append(changes, s) })

	step(m, false) // online/high published (first observation)
	step(m, false) // offline/low candidate, streak 1 of 2: suppressed
	step(m, false) // back to online/high, matches current: no change

	if got := m.Current(); !got.ReliablyOnline() {
		t.Errorf("Current() = %v, want online/high after blip", got)
	}
	if len(changes) != 1 {
		t.Errorf("subscriber saw %d changes %v, want only the initial one", len(changes), changes)
	}
}

func TestSustainedChangePublishesAfterThreshold(t *testing.T) {
	m := newTestMonitor(StaticFlag(true), &fakeProber{script: []int{2, 0, 0}})

	var changes []Status
	m.Subscribe(func(s Status) { changes = append(changes, s) })

	step(m, false) // online/high
	step(m, false) // offline/low, streak 1: suppressed
	step(m, false) // offline/low, streak 2: published

	if got := m.Current(); got.Online {
		t.Errorf("Current() = %v, want offline after sustained failures", got)
	}
	if len(changes) != 2 {
		t.Errorf("subscriber saw %d changes %v, want 2", len(changes), changes)
	}
}

func TestRefreshBypassesHysteresis(t *testing.T) {
	m := newTestMonitor(StaticFlag(true), &fakeProber{script: []int{2, 0}})

	step(m, false)
	if !m.Current().ReliablyOnline() {
		t.Fatal("setup: expected online/high")
	}

	got := m.Refresh(context.Background())
	if got.Online {
		t.Errorf("Refresh() = %v, want immediate offline", got)
	}
}

func TestSubscribeCancel(t *testing.T) {
	m := newTestMonitor(StaticFlag(true), &fakeProber{script: []int{2}})

	calls := 0
	cancel := m.Subscribe(func(Status) { calls++ })
	cancel()

	step(m, false)
	if calls != 0 {
		t.Errorf("canceled subscriber was called %d times", calls)
	}
}

func TestHTTPProberCountsSuccesses(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cachebust") == "" {
			t.Error("probe request missing cachebust parameter")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer okSrv.Close()

	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failSrv.Close()

	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadSrv.Close()

	p := NewHTTPProber([]string{okSrv.URL, failSrv.URL, deadSrv.URL}, time.Second)
	if got := p.Probe(context.Background()); got != 1 {
		t.Errorf("Probe() = %d successes, want 1", got)
	}
}

func TestHTTPProberCacheBusting(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RawQuery)
		mu.Unlock()
		if cc := r.Header.Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
			t.Errorf("Cache-Control = %q, want no-cache", cc)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewHTTPProber([]string{srv.URL}, time.Second)
	p.Probe(context.Background())
	p.Probe(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] == seen[1] {
		t.Errorf("cachebust queries not unique: %v", seen)
	}
}
