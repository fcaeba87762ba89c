// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package ledger implements the sync status ledger: one entry per record id
// recording whether that record has been successfully exchanged with the
// remote backend.
//
// The ledger is the source of truth for "does this record need to be
// pushed". Entries are written in the same Badger transaction as the record
// write (via the Txn-level functions), so a record can never exist without a
// ledger row. Entries whose record has been deleted are orphans; they are
// purged opportunistically during listing and by PurgeOrphans.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/metrics"
	"github.com/tomtom215/fiscus/internal/models"
	"github.com/tomtom215/fiscus/internal/store"
)

// statusPrefix is the ledger keyspace inside the shared store database.
const statusPrefix = "sync:"

// ErrNoEntry indicates no ledger row exists for the record id.
var ErrNoEntry = errors.New("no ledger entry")

// Ledger tracks per-record sync state in the shared store database.
type Ledger struct {
	store *store.Store
}

// New creates a Ledger over the given store.
func New(st *store.Store) *Ledger {
	return &Ledger{store: st}
}

func statusKey(id string) []byte {
	return []byte(statusPrefix + id)
}

func putStatusTxn(txn *badger.Txn, status *models.SyncStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status %s: %w", status.RecordID, err)
	}
	return txn.Set(statusKey(status.RecordID), data)
}

func getStatusTxn(txn *badger.Txn, id string) (*models.SyncStatus, error) {
	item, err := txn.Get(statusKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoEntry
	}
	if err != nil {
		return nil, fmt.Errorf("get status %s: %w", id, err)
	}
	var status models.SyncStatus
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &status)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: status %s: %v", store.ErrCorrupted, id, err)
	}
	return &status, nil
}

// MarkUnsyncedTxn writes an unsynced ledger row inside an open transaction.
// Callers pair this with store.PutRecordTxn so the record and its ledger row
// commit atomically.
func MarkUnsyncedTxn(txn *badger.Txn, table, id string) error {
	return putStatusTxn(txn, &models.SyncStatus{
		RecordID: id,
		Table:    table,
		Synced:   false,
	})
}

// MarkSyncedTxn writes a synced ledger row inside an open transaction.
func MarkSyncedTxn(txn *badger.Txn, table, id string, at time.Time) error {
	at = at.UTC()
	return putStatusTxn(txn, &models.SyncStatus{
		RecordID:    id,
		Table:       table,
		Synced:      true,
		LastAttempt: &at,
	})
}

// DeleteStatusTxn removes the ledger row inside an open transaction.
// Used when a record deletion has been confirmed remotely.
func DeleteStatusTxn(txn *badger.Txn, id string) error {
	return txn.Delete(statusKey(id))
}

// MarkUnsynced records that the record with the given id has a local
// mutation not yet exchanged with the backend.
func (l *Ledger) MarkUnsynced(ctx context.Context, table, id string) error {
	return l.store.Update(func(txn *badger.Txn) error {
		return MarkUnsyncedTxn(txn, table, id)
	})
}

// MarkSynced records a successful exchange for the record at the given time.
func (l *Ledger) MarkSynced(ctx context.Context, table, id string, at time.Time) error {
	return l.store.Update(func(txn *badger.Txn) error {
		return MarkSyncedTxn(txn, table, id, at)
	})
}

// MarkSyncedIfUnchanged marks a pushed record synced only if the stored copy
// still carries the UpdatedAt that was uploaded. A record mutated while its
// push was in flight stays unsynced so the newer version is pushed on the
// next pass; a record deleted in flight has no row to mark. Returns whether
// the row was marked.
func (l *Ledger) MarkSyncedIfUnchanged(ctx context.Context, pushed *models.Record, at time.Time) (bool, error) {
	marked := false
	err := l.store.Update(func(txn *badger.Txn) error {
		current, err := store.GetRecordTxn(txn, pushed.Kind.Table(), pushed.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.UpdatedAt.After(pushed.UpdatedAt) {
			return nil
		}
		marked = true
		return MarkSyncedTxn(txn, pushed.Kind.Table(), pushed.ID, at)
	})
	return marked, err
}

// MarkAttempt updates LastAttempt for the given ids without changing their
// synced state. Called after a failed push so retry scheduling can see when
// the records were last tried.
func (l *Ledger) MarkAttempt(ctx context.Context, ids []string, at time.Time) error {
	at = at.UTC()
	return l.store.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			status, err := getStatusTxn(txn, id)
			if errors.Is(err, ErrNoEntry) {
				continue
			}
			if err != nil {
				return err
			}
			status.LastAttempt = &at
			if err := putStatusTxn(txn, status); err != nil {
				return err
			}
		}
		return nil
	})
}

// Status returns the ledger row for a record id.
func (l *Ledger) Status(ctx context.Context, id string) (*models.SyncStatus, error) {
	var status *models.SyncStatus
	err := l.store.View(func(txn *badger.Txn) error {
		var gerr error
		status, gerr = getStatusTxn(txn, id)
		return gerr
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// ListUnsynced returns the records owned by ownerID whose ledger rows are
// unsynced, joined against the store.
//
// A ledger row whose record no longer exists is a stale leftover from an
// incomplete deletion; it is purged here and logged as a recoverable
// anomaly rather than failing the batch. Corrupted records still fail the
// listing: that is the one fatal class.
func (l *Ledger) ListUnsynced(ctx context.Context, ownerID string) ([]*models.Record, error) {
	var (
		records []*models.Record
		stale   []string
	)

	err := l.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(statusPrefix)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var status models.SyncStatus
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &status)
			})
			if err != nil {
				return fmt.Errorf("%w: status key %s: %v", store.ErrCorrupted, it.Item().Key(), err)
			}
			if status.Synced {
				continue
			}

			rec, err := store.GetRecordTxn(txn, status.Table, status.RecordID)
			if errors.Is(err, store.ErrNotFound) {
				stale = append(stale, status.RecordID)
				continue
			}
			if err != nil {
				return err
			}
			if rec.OwnerID != ownerID {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(stale) > 0 {
		logging.Ctx(ctx).Warn().
			Int("count", len(stale)).
			Msg("Purging ledger rows with no backing record")
		if err := l.purgeIDs(stale); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// PurgeOrphans removes every ledger row whose record no longer exists.
// Returns the number of rows removed.
func (l *Ledger) PurgeOrphans(ctx context.Context) (int, error) {
	var stale []string

	err := l.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(statusPrefix)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var status models.SyncStatus
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &status)
			})
			if err != nil {
				return fmt.Errorf("%w: status key %s: %v", store.ErrCorrupted, it.Item().Key(), err)
			}

			_, err = store.GetRecordTxn(txn, status.Table, status.RecordID)
			if errors.Is(err, store.ErrNotFound) {
				stale = append(stale, status.RecordID)
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := l.purgeIDs(stale); err != nil {
		return 0, err
	}
	return len(stale), nil
}

func (l *Ledger) purgeIDs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := l.store.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete(statusKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("purge ledger rows: %w", err)
	}
	metrics.LedgerOrphansPurged.Add(float64(len(ids)))
	return nil
}
