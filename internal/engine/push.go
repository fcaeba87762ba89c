// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package engine

import (
	"context"
	"time"

	"github.com/tomtom215/fiscus/internal/ledger"
	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/metrics"
	"github.com/tomtom215/fiscus/internal/models"
)

// PushResult summarises one push pass.
type PushResult struct {
	Pushed int // records confirmed by the remote and marked synced
	Errors int // batches that failed; their records stay unsynced
}

// Pusher uploads every record the ledger reports unsynced, batched per
// table. Upserts are idempotent on the remote (conflict key is the record
// id), so re-pushing after a partial failure is harmless.
type Pusher struct {
	ledger    *ledger.Ledger
	backend   Backend
	batchSize int
}

// NewPusher creates a Pusher sending at most batchSize records per upsert.
func NewPusher(lg *ledger.Ledger, backend Backend, batchSize int) *Pusher {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Pusher{ledger: lg, backend: backend, batchSize: batchSize}
}

// Push uploads all unsynced records for ownerID. A failed batch is logged,
// its records stamped with an attempt, and the pass continues with the
// next batch. The error return is reserved for local store failures.
func (p *Pusher) Push(ctx context.Context, ownerID string) (PushResult, error) {
	var res PushResult

	pending, err := p.ledger.ListUnsynced(ctx, ownerID)
	if err != nil {
		return res, err
	}
	if len(pending) == 0 {
		return res, nil
	}

	byTable := make(map[string][]*models.Record, len(models.Tables()))
	for _, rec := range pending {
		table := rec.Kind.Table()
		byTable[table] = append(byTable[table], rec)
	}

	for _, table := range models.Tables() {
		recs := byTable[table]
		for start := 0; start < len(recs); start += p.batchSize {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			end := start + p.batchSize
			if end > len(recs) {
				end = len(recs)
			}
			if err := p.pushBatch(ctx, table, recs[start:end], &res); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func (p *Pusher) pushBatch(ctx context.Context, table string, batch []*models.Record, res *PushResult) error {
	now := time.Now().UTC()
	ids := make([]string, len(batch))
	for i, rec := range batch {
		ids[i] = rec.ID
	}

	if err := p.backend.Upsert(ctx, table, batch); err != nil {
		res.Errors++
		metrics.PushErrorsTotal.Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("table", table).
			Int("batch_size", len(batch)).
			Msg("Push batch failed, records stay unsynced")
		if merr := p.ledger.MarkAttempt(ctx, ids, now); merr != nil {
			return merr
		}
		return nil
	}

	// Marking is conditional: a record mutated after ListUnsynced read it
	// carries a newer UpdatedAt than the copy this batch uploaded, and must
	// stay unsynced so the mutation is pushed on the next pass.
	synced := 0
	for _, rec := range batch {
		marked, err := p.ledger.MarkSyncedIfUnchanged(ctx, rec, now)
		if err != nil {
			return err
		}
		if marked {
			synced++
		} else {
			logging.Ctx(ctx).Debug().
				Str("table", table).
				Str("record_id", rec.ID).
				Msg("Record changed during push, stays unsynced")
		}
	}
	res.Pushed += synced
	metrics.RecordsPushedTotal.Add(float64(synced))
	return nil
}
