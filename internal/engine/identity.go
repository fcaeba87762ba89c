// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package engine

import (
	"context"
	"sync"
)

// StaticIdentity is an Identity fixed at construction, used by the daemon
// when the owner is configured up front. An empty value means no identity.
type StaticIdentity string

// CurrentOwnerID implements Identity.
func (s StaticIdentity) CurrentOwnerID(context.Context) (string, bool) {
	return string(s), s != ""
}

// SwitchableIdentity is an Identity that can be established and cleared at
// runtime. Establishing an owner invokes the OnEstablish hook, which the
// daemon wires to the orchestrator so sign-in triggers a sync run.
type SwitchableIdentity struct {
	mu    sync.RWMutex
	owner string

	// OnEstablish runs after a new owner is set. May be nil.
	OnEstablish func(ownerID string)
}

// CurrentOwnerID implements Identity.
func (s *SwitchableIdentity) CurrentOwnerID(context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner, s.owner != ""
}

// Establish sets the owner. Setting the same owner again is a no-op and
// does not re-trigger the hook.
func (s *SwitchableIdentity) Establish(ownerID string) {
	s.mu.Lock()
	changed := ownerID != "" && ownerID != s.owner
	s.owner = ownerID
	hook := s.OnEstablish
	s.mu.Unlock()

	if changed && hook != nil {
		hook(ownerID)
	}
}

// Clear forgets the owner. Subsequent sync runs become no-ops.
func (s *SwitchableIdentity) Clear() {
	s.mu.Lock()
	s.owner = ""
	s.mu.Unlock()
}
