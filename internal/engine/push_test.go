// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/fiscus/internal/models"
	"github.com/tomtom215/fiscus/internal/remote"
)

func saveOffline(t *testing.T, h *harness, owner string, n int) []*models.Record {
	t.Helper()
	recs := make([]*models.Record, n)
	for i := range recs {
		rec := newRecord(owner)
		rec.Note = fmt.Sprintf("record %d", i)
		if err := h.engine.SaveRecord(context.Background(), rec); err != nil {
			t.Fatalf("SaveRecord() error = %v", err)
		}
		recs[i] = rec
	}
	return recs
}

func TestPushUploadsUnsyncedAndMarksSynced(t *testing.T) {
	h := newHarness(t, StaticIdentity("owner-1"), offline())
	ctx := context.Background()
	recs := saveOffline(t, h, "owner-1", 3)

	p := NewPusher(h.ledger, h.backend, 200)
	res, err := p.Push(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if res.Pushed != 3 || res.Errors != 0 {
		t.Errorf("Push() = %+v, want 3 pushed", res)
	}

	for _, rec := range recs {
		if !h.backend.has(models.TableExpenses, rec.ID) {
			t.Errorf("record %s not on backend", rec.ID)
		}
		status, err := h.ledger.Status(ctx, rec.ID)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if !status.Synced {
			t.Errorf("record %s not marked synced", rec.ID)
		}
	}
}

func TestPushIsIdempotent(t *testing.T) {
	h := newHarness(t, StaticIdentity("owner-1"), offline())
	ctx := context.Background()
	saveOffline(t, h, "owner-1", 2)

	p := NewPusher(h.ledger, h.backend, 200)
	if _, err := p.Push(ctx, "owner-1"); err != nil {
		t.Fatalf("first Push() error = %v", err)
	}

	res, err := p.Push(ctx, "owner-1")
	if err != nil {
		t.Fatalf("second Push() error = %v", err)
	}
	if res.Pushed != 0 {
		t.Errorf("second Push() pushed %d records, want 0", res.Pushed)
	}
}

func TestPushBatches(t *testing.T) {
	h := newHarness(t, StaticIdentity("owner-1"), offline())
	ctx := context.Background()
	saveOffline(t, h, "owner-1", 5)

	p := NewPusher(h.ledger, h.backend, 2)
	res, err := p.Push(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if res.Pushed != 5 {
		t.Errorf("Push() pushed %d, want 5", res.Pushed)
	}

	// 5 records at batch size 2: 3 upsert calls.
	upserts := 0
	for _, op := range h.backend.opLog() {
		if op == "upsert" {
			upserts++
		}
	}
	if upserts != 3 {
		t.Errorf("backend saw %d upserts, want 3", upserts)
	}
}

func TestPushFailedBatchStaysUnsynced(t *testing.T) {
	h := newHarness(t, StaticIdentity("owner-1"), offline())
	ctx := context.Background()
	recs := saveOffline(t, h, "owner-1", 2)

	h.backend.upsertErr = remote.Transient("upsert", errors.New("unreachable"))

	p := NewPusher(h.ledger, h.backend, 200)
	res, err := p.Push(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Push() error = %v, want nil: remote failures live in the result", err)
	}
	if res.Pushed != 0 || res.Errors != 1 {
		t.Errorf("Push() = %+v, want 1 failed batch", res)
	}

	for _, rec := range recs {
		status, serr := h.ledger.Status(ctx, rec.ID)
		if serr != nil {
			t.Fatalf("Status() error = %v", serr)
		}
		if status.Synced {
			t.Errorf("record %s marked synced despite failed batch", rec.ID)
		}
		if status.LastAttempt == nil {
			t.Errorf("record %s has no attempt stamp after failed batch", rec.ID)
		}
	}

	// Backend recovers: the next push picks the records up again.
	h.backend.upsertErr = nil
	res, err = p.Push(ctx, "owner-1")
	if err != nil {
		t.Fatalf("recovery Push() error = %v", err)
	}
	if res.Pushed != 2 {
		t.Errorf("recovery Push() pushed %d, want 2", res.Pushed)
	}
}

func TestPushConcurrentMutationStaysUnsynced(t *testing.T) {
	h := newHarness(t, StaticIdentity("owner-1"), offline())
	ctx := context.Background()
	rec := saveOffline(t, h, "owner-1", 1)[0]

	// A local save lands while the batch upsert is in flight: the uploaded
	// copy is already stale by the time the backend confirms it.
	mutated := false
	h.backend.upsertHook = func() {
		if mutated {
			return
		}
		mutated = true
		update := *rec
		update.AmountCents = 9999
		if err := h.engine.SaveRecord(ctx, &update); err != nil {
			t.Errorf("SaveRecord() during push error = %v", err)
		}
	}

	p := NewPusher(h.ledger, h.backend, 200)
	res, err := p.Push(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if res.Pushed != 0 {
		t.Errorf("Push() marked %d records synced, want 0: uploaded copy is stale", res.Pushed)
	}

	status, err := h.ledger.Status(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Synced {
		t.Error("record marked synced while local copy is newer than the uploaded one")
	}
	pending, err := h.ledger.ListUnsynced(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListUnsynced() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != rec.ID {
		t.Fatalf("ListUnsynced() = %v, want the mutated record", pending)
	}
	if pending[0].AmountCents != 9999 {
		t.Errorf("local AmountCents = %d, want 9999", pending[0].AmountCents)
	}

	// The next pass uploads the mutation and converges.
	res, err = p.Push(ctx, "owner-1")
	if err != nil {
		t.Fatalf("second Push() error = %v", err)
	}
	if res.Pushed != 1 {
		t.Errorf("second Push() = %+v, want the mutated record pushed", res)
	}
	remoteCopy := h.backend.records[models.TableExpenses][rec.ID]
	if remoteCopy == nil || remoteCopy.AmountCents != 9999 {
		t.Errorf("backend copy = %+v, want AmountCents 9999", remoteCopy)
	}
	status, err = h.ledger.Status(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.Synced {
		t.Error("record not synced after the mutation was pushed")
	}
}

func TestPushScopedToOwner(t *testing.T) {
	h := newHarness(t, StaticIdentity("owner-1"), offline())
	ctx := context.Background()
	saveOffline(t, h, "owner-1", 1)
	saveOffline(t, h, "owner-2", 1)

	p := NewPusher(h.ledger, h.backend, 200)
	res, err := p.Push(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if res.Pushed != 1 {
		t.Errorf("Push() pushed %d records, want only owner-1's single record", res.Pushed)
	}
}

func TestPushNothingPending(t *testing.T) {
	h := newHarness(t, StaticIdentity("owner-1"), offline())

	p := NewPusher(h.ledger, h.backend, 200)
	res, err := p.Push(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if res.Pushed != 0 || res.Errors != 0 {
		t.Errorf("Push() = %+v, want zero result", res)
	}
	if ops := h.backend.opLog(); len(ops) != 0 {
		t.Errorf("backend saw operations with nothing pending: %v", ops)
	}
}
