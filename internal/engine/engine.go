// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/fiscus/internal/connectivity"
	"github.com/tomtom215/fiscus/internal/ledger"
	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/models"
	"github.com/tomtom215/fiscus/internal/queue"
	"github.com/tomtom215/fiscus/internal/remote"
	"github.com/tomtom215/fiscus/internal/store"
)

// Backend is the remote surface the engine consumes.
// Implemented by remote.Client; tests substitute an in-memory fake.
type Backend interface {
	Upsert(ctx context.Context, table string, records []*models.Record) error
	DeleteRecord(ctx context.Context, table, id, ownerID string) error
	Select(ctx context.Context, table, ownerID string, limit int) ([]json.RawMessage, error)
}

// Identity reports the authenticated owner, if any. Sync is scoped to one
// owner and is a silent no-op when no identity is present.
type Identity interface {
	CurrentOwnerID(ctx context.Context) (string, bool)
}

// StatusSource exposes the current connectivity status.
// Implemented by connectivity.Monitor.
type StatusSource interface {
	Current() connectivity.Status
}

// Config holds engine tuning knobs.
type Config struct {
	// PullLimit bounds how many remote records one pull fetches per table.
	// Default: 5000
	PullLimit int

	// PushBatchSize is the number of records per upsert batch.
	// Default: 200
	PushBatchSize int

	// SyncInterval is the periodic trigger cadence while reliably online.
	// Default: 5m
	SyncInterval time.Duration
}

// DefaultConfig returns engine defaults.
func DefaultConfig() Config {
	return Config{
		PullLimit:     5000,
		PushBatchSize: 200,
		SyncInterval:  5 * time.Minute,
	}
}

func (c *Config) applyDefaults() {
	if c.PullLimit <= 0 {
		c.PullLimit = 5000
	}
	if c.PushBatchSize <= 0 {
		c.PushBatchSize = 200
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = 5 * time.Minute
	}
}

// Engine bundles the local store, sync bookkeeping, and the remote backend
// behind the operations the application layer calls: save, delete, list.
//
// Saving is two decoupled steps: a durable local commit (record + unsynced
// ledger row in one transaction, always succeeds or fails atomically)
// followed by an independent best-effort push. The push outcome never
// affects the validity of the local commit.
type Engine struct {
	store    *store.Store
	ledger   *ledger.Ledger
	queue    *queue.Queue
	backend  Backend
	identity Identity

	// status gates the immediate best-effort push after a save.
	// Optional: nil disables immediate pushes.
	status StatusSource

	pusher *Pusher
}

// New creates an Engine. status may be nil.
func New(st *store.Store, lg *ledger.Ledger, q *queue.Queue, backend Backend, identity Identity, status StatusSource, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		store:    st,
		ledger:   lg,
		queue:    q,
		backend:  backend,
		identity: identity,
		status:   status,
		pusher:   NewPusher(lg, backend, cfg.PushBatchSize),
	}
}

// SaveRecord durably commits a record locally and marks it unsynced, then,
// if connectivity is reliably online, attempts an immediate best-effort
// push. The commit is valid regardless of the push outcome.
//
// New records get an id and CreatedAt; every save advances UpdatedAt.
func (e *Engine) SaveRecord(ctx context.Context, rec *models.Record) error {
	now := time.Now()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
	rec.Touch(now)

	if err := rec.Validate(); err != nil {
		return err
	}

	err := e.store.Update(func(txn *badger.Txn) error {
		if err := store.PutRecordTxn(txn, rec); err != nil {
			return err
		}
		return ledger.MarkUnsyncedTxn(txn, rec.Kind.Table(), rec.ID)
	})
	if err != nil {
		return fmt.Errorf("commit record %s: %w", rec.ID, err)
	}

	e.pushSoon(ctx)
	return nil
}

// pushSoon attempts an immediate push when the owner is known and
// connectivity is reliably online. Failures are logged and left for the
// next orchestrator run; the caller never sees them.
func (e *Engine) pushSoon(ctx context.Context) {
	if e.status == nil || !e.status.Current().ReliablyOnline() {
		return
	}
	owner, ok := e.identity.CurrentOwnerID(ctx)
	if !ok {
		return
	}
	res, err := e.pusher.Push(ctx, owner)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Immediate push failed, deferring to next sync run")
		return
	}
	if res.Errors > 0 {
		logging.Ctx(ctx).Debug().
			Int("errors", res.Errors).
			Msg("Immediate push partially failed, records stay queued")
	}
}

// DeleteRecord removes a record locally and confirms the deletion remotely.
//
// The local delete, ledger cleanup, and delete queue entry commit in one
// transaction, so a crash at any point leaves the deletion durable. The
// remote delete is then attempted immediately: on success (including remote
// "not found") the queue entry is confirmed away; otherwise it stays queued
// for replay on the next orchestrator run.
//
// Deleting an absent record is a no-op.
func (e *Engine) DeleteRecord(ctx context.Context, table, id string) error {
	rec, err := e.store.Get(ctx, table, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	snapshot, err := models.EncodeRecordJSON(rec)
	if err != nil {
		return fmt.Errorf("snapshot record %s: %w", id, err)
	}

	entry := &models.DeleteQueueEntry{
		Table:    table,
		RecordID: id,
		OwnerID:  rec.OwnerID,
		Snapshot: snapshot,
	}

	err = e.store.Update(func(txn *badger.Txn) error {
		if err := store.DeleteRecordTxn(txn, table, id); err != nil {
			return err
		}
		if err := ledger.DeleteStatusTxn(txn, id); err != nil {
			return err
		}
		return queue.EnqueueTxn(txn, entry)
	})
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}

	rerr := e.backend.DeleteRecord(ctx, table, id, rec.OwnerID)
	if rerr == nil || remote.IsNotFound(rerr) {
		return e.queue.Confirm(ctx, id)
	}

	logging.Ctx(ctx).Debug().
		Err(rerr).
		Str("record_id", id).
		Msg("Remote delete not confirmed, queued for replay")
	return nil
}

// GetRecord returns one local record.
func (e *Engine) GetRecord(ctx context.Context, table, id string) (*models.Record, error) {
	return e.store.Get(ctx, table, id)
}

// ListRecords returns all local records in table belonging to ownerID.
func (e *Engine) ListRecords(ctx context.Context, table, ownerID string) ([]*models.Record, error) {
	return e.store.Filter(ctx, table, func(rec *models.Record) bool {
		return rec.OwnerID == ownerID
	})
}
