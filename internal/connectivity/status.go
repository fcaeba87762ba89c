// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package connectivity

// Confidence grades how much the monitor trusts its own online/offline call.
type Confidence int

const (
	// ConfidenceLow means the signal is ambiguous (e.g. a single probe
	// succeeded, or probes only just started failing).
	ConfidenceLow Confidence = iota

	// ConfidenceMedium means partial corroboration (some probes succeeded
	// but not a quorum).
	ConfidenceMedium

	// ConfidenceHigh means the OS flag and a probe quorum agree.
	ConfidenceHigh
)

// String returns the lowercase label for the confidence level.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// Status is the monitor's derived connectivity signal. It is deliberately
// not a raw boolean: the OS-level online flag is known to be optimistic, so
// consumers that trigger network work should require ReliablyOnline.
type Status struct {
	Online     bool
	Confidence Confidence
}

// ReliablyOnline reports high-confidence reachability. The orchestrator
// only triggers sync runs on this signal.
func (s Status) ReliablyOnline() bool {
	return s.Online && s.Confidence == ConfidenceHigh
}

// String renders the status for logs.
func (s Status) String() string {
	state := "offline"
	if s.Online {
		state = "online"
	}
	return state + "/" + s.Confidence.String()
}
