// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fiscus/internal/metrics"
)

// DefaultProbeEndpoints are small, highly available, CDN-backed URLs
// designed for exactly this purpose. They return tiny responses and tolerate
// high request volume.
var DefaultProbeEndpoints = []string{
	"https://www.gstatic.com/generate_204",
	"https://connectivitycheck.gstatic.com/generate_204",
	"https://www.msftconnecttest.com/connecttest.txt",
}

// Prober issues independent reachability probes and reports how many
// succeeded.
type Prober interface {
	Probe(ctx context.Context) int
}

// HTTPProber probes a set of endpoints concurrently with per-probe timeouts
// and cache-busting, so a stale intermediary cache cannot fake reachability.
type HTTPProber struct {
	endpoints []string
	timeout   time.Duration
	client    *http.Client
}

// NewHTTPProber creates a prober. Empty endpoints fall back to
// DefaultProbeEndpoints; a zero timeout defaults to 3s.
func NewHTTPProber(endpoints []string, timeout time.Duration) *HTTPProber {
	if len(endpoints) == 0 {
		endpoints = DefaultProbeEndpoints
	}
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProber{
		endpoints: endpoints,
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
	}
}

// Probe runs all endpoint probes concurrently and returns the success count.
func (p *HTTPProber) Probe(ctx context.Context) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for _, endpoint := range p.endpoints {
		wg.Add(1)
		go func(endpoint string) {
			defer wg.Done()
			if p.probeOne(ctx, endpoint) {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(endpoint)
	}

	wg.Wait()
	return successes
}

// probeOne issues a single cache-busted GET. Any complete HTTP exchange
// counts as reachability, including redirects and 4xx: the question is
// "can we reach the network", not "is this URL healthy".
func (p *HTTPProber) probeOne(ctx context.Context, endpoint string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	u := endpoint
	sep := "?"
	for i := range endpoint {
		if endpoint[i] == '?' {
			sep = "&"
			break
		}
	}
	u += sep + "cachebust=" + uuid.New().String()[:8]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.ProbeResultsTotal.WithLabelValues(endpoint, "fail").Inc()
		return false
	}
	resp.Body.Close() //nolint:errcheck // body is at most a few bytes

	ok := resp.StatusCode < 500
	if ok {
		metrics.ProbeResultsTotal.WithLabelValues(endpoint, "ok").Inc()
	} else {
		metrics.ProbeResultsTotal.WithLabelValues(endpoint, "fail").Inc()
	}
	return ok
}
