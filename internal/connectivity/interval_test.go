// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package connectivity

import (
	"testing"
	"time"
)

func TestIntervalFor(t *testing.T) {
	iv := Intervals{
		Offline:  15 * time.Second,
		Degraded: 45 * time.Second,
		Online:   2 * time.Minute,
	}

	tests := []struct {
		name   string
		status Status
		want   time.Duration
	}{
		{"offline low", Status{Online: false, Confidence: ConfidenceLow}, iv.Offline},
		{"offline high", Status{Online: false, Confidence: ConfidenceHigh}, iv.Offline},
		{"online low", Status{Online: true, Confidence: ConfidenceLow}, iv.Degraded},
		{"online medium", Status{Online: true, Confidence: ConfidenceMedium}, iv.Degraded},
		{"online high", Status{Online: true, Confidence: ConfidenceHigh}, iv.Online},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntervalFor(tt.status, iv); got != tt.want {
				t.Errorf("IntervalFor(%v) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Status{Online: true, Confidence: ConfidenceHigh}, "online/high"},
		{Status{Online: true, Confidence: ConfidenceMedium}, "online/medium"},
		{Status{Online: false, Confidence: ConfidenceLow}, "offline/low"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestReliablyOnline(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{Status{Online: true, Confidence: ConfidenceHigh}, true},
		{Status{Online: true, Confidence: ConfidenceMedium}, false},
		{Status{Online: false, Confidence: ConfidenceHigh}, false},
	}
	for _, tt := range tests {
		if got := tt.status.ReliablyOnline(); got != tt.want {
			t.Errorf("ReliablyOnline(%v) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
