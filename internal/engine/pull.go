// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fiscus/internal/ledger"
	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/metrics"
	"github.com/tomtom215/fiscus/internal/models"
	"github.com/tomtom215/fiscus/internal/queue"
	"github.com/tomtom215/fiscus/internal/store"
)

// PullResult summarises one pull pass across all tables.
type PullResult struct {
	Merged    int // remote records written locally
	Skipped   int // local copy was same age or newer, or deletion pending
	Malformed int // remote rows that failed canonicalization or validation
}

// Puller downloads the remote state for an owner and merges it into the
// local store, record by record, last-write-wins on UpdatedAt. Ties keep
// the local copy. A pull never deletes local records: remote absence is
// indistinguishable from a partial listing.
type Puller struct {
	store   *store.Store
	backend Backend
	limit   int
}

// NewPuller creates a Puller fetching at most limit records per table.
func NewPuller(st *store.Store, backend Backend, limit int) *Puller {
	if limit <= 0 {
		limit = 5000
	}
	return &Puller{store: st, backend: backend, limit: limit}
}

// Pull fetches and merges every table. A table that fails to download
// aborts the pull; per-record failures within a downloaded table only
// count against the result.
func (p *Puller) Pull(ctx context.Context, ownerID string) (PullResult, error) {
	var res PullResult
	for _, table := range models.Tables() {
		rows, err := p.backend.Select(ctx, table, ownerID, p.limit)
		if err != nil {
			return res, fmt.Errorf("select %s: %w", table, err)
		}
		tr, err := p.mergeTable(ctx, table, ownerID, rows)
		res.Merged += tr.Merged
		res.Skipped += tr.Skipped
		res.Malformed += tr.Malformed
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (p *Puller) mergeTable(ctx context.Context, table, ownerID string, rows []json.RawMessage) (PullResult, error) {
	var res PullResult
	log := logging.Ctx(ctx)

	for _, raw := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, err := models.CanonicalizeRecordJSON(raw)
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			res.Malformed++
			metrics.RecordsPulledTotal.WithLabelValues("malformed").Inc()
			log.Warn().Err(err).Str("table", table).Msg("Skipping malformed remote record")
			continue
		}
		if rec.OwnerID != ownerID {
			// Remote should never hand back another owner's rows; treat
			// as malformed rather than writing them locally.
			res.Malformed++
			metrics.RecordsPulledTotal.WithLabelValues("malformed").Inc()
			log.Warn().Str("table", table).Str("record_id", rec.ID).Msg("Remote record has unexpected owner")
			continue
		}

		merged, err := p.mergeRecord(rec)
		if err != nil {
			return res, err
		}
		if merged {
			res.Merged++
			metrics.RecordsPulledTotal.WithLabelValues("merged").Inc()
		} else {
			res.Skipped++
			metrics.RecordsPulledTotal.WithLabelValues("skipped").Inc()
		}
	}
	return res, nil
}

// mergeRecord writes rec iff it is strictly newer than the local copy.
// A merged record came from the remote, so its ledger row is marked
// synced in the same transaction.
//
// A record with a queued deletion is never merged: it still exists on the
// remote until the queue drains, and writing it back would undo the user's
// delete.
func (p *Puller) mergeRecord(rec *models.Record) (bool, error) {
	merged := false
	err := p.store.Update(func(txn *badger.Txn) error {
		table := rec.Kind.Table()
		pending, err := queue.HasPendingTxn(txn, rec.ID)
		if err != nil {
			return err
		}
		if pending {
			return nil
		}
		local, err := store.GetRecordTxn(txn, table, rec.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// new to this device
		case err != nil:
			return err
		default:
			if !rec.NewerThan(local) {
				return nil
			}
		}
		if err := store.PutRecordTxn(txn, rec); err != nil {
			return err
		}
		merged = true
		return ledger.MarkSyncedTxn(txn, table, rec.ID, rec.UpdatedAt)
	})
	return merged, err
}
