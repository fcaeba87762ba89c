// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package queue implements the durable delete queue.
//
// When a local deletion cannot be confirmed against the remote backend
// (offline, transient error), the deletion is recorded here (table, record
// id, and a snapshot of the record at deletion time) and replayed on every
// orchestrator run until the backend confirms it. A remote "not found"
// response counts as confirmation: the record is already gone.
//
// Entries persist in the shared store database under the "del:" keyspace,
// keyed by record id, so enqueueing commits atomically with the local record
// delete and a pending deletion is a single-key lookup for the pull merge.
// At most one entry exists per record; re-deleting a recreated record
// replaces the earlier snapshot. Queue size is deliberately unbounded;
// delete volume is low relative to record volume in this domain, and
// entries leave the queue on the first successful replay.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/metrics"
	"github.com/tomtom215/fiscus/internal/models"
	"github.com/tomtom215/fiscus/internal/remote"
	"github.com/tomtom215/fiscus/internal/store"
)

// queuePrefix is the delete queue keyspace inside the shared store database.
const queuePrefix = "del:"

// RemoteDeleter issues a delete against the remote backend.
// Implemented by remote.Client.
type RemoteDeleter interface {
	DeleteRecord(ctx context.Context, table, id, ownerID string) error
}

// DrainResult summarizes one replay pass over the queue.
type DrainResult struct {
	// Replayed is the number of entries confirmed and removed.
	Replayed int

	// Failed is the number of entries that remain queued.
	Failed int
}

// Queue is the Badger-backed delete queue.
type Queue struct {
	store *store.Store
}

// New creates a Queue over the given store.
func New(st *store.Store) *Queue {
	return &Queue{store: st}
}

func entryKey(recordID string) []byte {
	return []byte(queuePrefix + recordID)
}

// EnqueueTxn writes a queue entry inside an open transaction, assigning an
// entry id and timestamp if unset. Callers pair this with the local record
// delete so both commit atomically. The entry is keyed by record id, so a
// second deletion of the same record replaces the earlier entry.
func EnqueueTxn(txn *badger.Txn, entry *models.DeleteQueueEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode queue entry: %w", err)
	}
	return txn.Set(entryKey(entry.RecordID), data)
}

// HasPendingTxn reports whether a deletion of the given record is queued,
// inside an open transaction. The pull merge checks this before writing a
// remote copy locally: a record the user deleted offline still exists on
// the backend until the queue drains, and merging it back would undo the
// deletion.
func HasPendingTxn(txn *badger.Txn, recordID string) (bool, error) {
	_, err := txn.Get(entryKey(recordID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get queue entry %s: %w", recordID, err)
	}
	return true, nil
}

// Enqueue durably records a deletion for later replay.
func (q *Queue) Enqueue(ctx context.Context, entry *models.DeleteQueueEntry) error {
	err := q.store.Update(func(txn *badger.Txn) error {
		return EnqueueTxn(txn, entry)
	})
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Debug().
		Str("table", entry.Table).
		Str("record_id", entry.RecordID).
		Msg("Deletion queued for replay")
	return nil
}

// Pending returns all queued entries, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]*models.DeleteQueueEntry, error) {
	var entries []*models.DeleteQueueEntry

	err := q.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(queuePrefix)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry models.DeleteQueueEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return fmt.Errorf("%w: queue key %s: %v", store.ErrCorrupted, it.Item().Key(), err)
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortByEnqueueTime(entries)
	return entries, nil
}

// Depth returns the number of queued entries.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	entries, err := q.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Drain replays every queued deletion against the backend.
//
// Replay is idempotent: success and remote "not found" both remove the
// entry. Failed replays update attempt bookkeeping and stay queued for the
// next run. Drain never returns an error for individual replay failures;
// only store-level failures propagate.
func (q *Queue) Drain(ctx context.Context, deleter RemoteDeleter) (DrainResult, error) {
	entries, err := q.Pending(ctx)
	if err != nil {
		return DrainResult{}, err
	}

	var result DrainResult
	now := time.Now().UTC()

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := deleter.DeleteRecord(ctx, entry.Table, entry.RecordID, entry.OwnerID)
		if err == nil || remote.IsNotFound(err) {
			if derr := q.Confirm(ctx, entry.RecordID); derr != nil {
				return result, derr
			}
			result.Replayed++
			metrics.DeleteReplaysTotal.WithLabelValues("replayed").Inc()
			continue
		}

		result.Failed++
		metrics.DeleteReplaysTotal.WithLabelValues("failed").Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("table", entry.Table).
			Str("record_id", entry.RecordID).
			Int("attempts", entry.Attempts+1).
			Msg("Delete replay failed, entry stays queued")

		entry.Attempts++
		entry.LastAttemptAt = now
		entry.LastError = err.Error()
		if uerr := q.update(entry); uerr != nil {
			return result, uerr
		}
	}

	depth, err := q.Depth(ctx)
	if err == nil {
		metrics.DeleteQueueDepth.Set(float64(depth))
	}

	return result, nil
}

// Confirm removes the queue entry for a record whose deletion has been
// confirmed remotely.
func (q *Queue) Confirm(ctx context.Context, recordID string) error {
	return q.store.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(recordID))
	})
}

func (q *Queue) update(entry *models.DeleteQueueEntry) error {
	return q.store.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode queue entry: %w", err)
		}
		return txn.Set(entryKey(entry.RecordID), data)
	})
}

// sortByEnqueueTime orders entries oldest first so replay preserves the
// original deletion order.
func sortByEnqueueTime(entries []*models.DeleteQueueEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
	})
}
