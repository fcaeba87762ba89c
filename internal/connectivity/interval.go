// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package connectivity

import "time"

// Intervals configures the adaptive polling cadence: probe often while
// offline (fast recovery detection), rarely while reliably online (reduce
// overhead), and in between when the signal is ambiguous.
type Intervals struct {
	// Offline is the polling interval while offline.
	Offline time.Duration

	// Degraded is the polling interval while online with less than high
	// confidence.
	Degraded time.Duration

	// Online is the polling interval while reliably online.
	Online time.Duration
}

// DefaultIntervals returns the production cadence.
func DefaultIntervals() Intervals {
	return Intervals{
		Offline:  15 * time.Second,
		Degraded: 45 * time.Second,
		Online:   2 * time.Minute,
	}
}

// IntervalFor maps a connectivity status to its polling interval.
// Pure function: the scheduler calls it instead of scattering interval
// branching across timer call sites.
func IntervalFor(s Status, iv Intervals) time.Duration {
	switch {
	case !s.Online:
		return iv.Offline
	case s.Confidence == ConfidenceHigh:
		return iv.Online
	default:
		return iv.Degraded
	}
}
