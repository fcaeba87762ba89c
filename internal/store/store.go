// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/fiscus/internal/logging"
	"github.com/tomtom215/fiscus/internal/metrics"
	"github.com/tomtom215/fiscus/internal/models"
)

// recordPrefix is the keyspace for record values. Ledger ("sync:") and
// delete queue ("del:") keyspaces live beside it in the same database; see
// the package documentation for the full layout.
const recordPrefix = "rec:"

// Store is the BadgerDB-backed local store adapter.
//
// All methods are safe for concurrent use. Mutations are ACID transactions;
// multi-key writes (record + ledger row) go through Update so they commit or
// fail as a unit.
type Store struct {
	db  *badger.DB
	cfg Config

	mu     sync.RWMutex
	closed bool
}

// Open creates or opens the store at the configured path.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.InMemory = cfg.InMemory
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Local store opened")

	return &Store{db: db, cfg: cfg}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(txn *badger.Txn) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// Update runs fn in a read-write transaction. The ledger and delete queue
// packages use this to commit their keys atomically with record writes.
func (s *Store) Update(fn func(txn *badger.Txn) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation("txn", time.Since(start).Seconds())
	}()
	return s.db.Update(fn)
}

// RecordKey returns the storage key for a record.
func RecordKey(table, id string) []byte {
	return []byte(recordPrefix + table + ":" + id)
}

// recordKeyPrefix returns the scan prefix for a table.
func recordKeyPrefix(table string) []byte {
	return []byte(recordPrefix + table + ":")
}

// GetRecordTxn reads and canonicalizes one record inside an open transaction.
// Returns ErrNotFound when absent and ErrCorrupted when undecodable.
func GetRecordTxn(txn *badger.Txn, table, id string) (*models.Record, error) {
	item, err := txn.Get(RecordKey(table, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s/%s: %w", table, id, err)
	}

	var rec *models.Record
	err = item.Value(func(val []byte) error {
		var derr error
		rec, derr = decodeRecord(val)
		return derr
	})
	if err != nil {
		return nil, fmt.Errorf("record %s/%s: %w", table, id, err)
	}
	return rec, nil
}

// PutRecordTxn writes one record inside an open transaction. The table is
// derived from the record kind.
func PutRecordTxn(txn *badger.Txn, rec *models.Record) error {
	data, err := models.EncodeRecordJSON(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return txn.Set(RecordKey(rec.Kind.Table(), rec.ID), data)
}

// DeleteRecordTxn removes one record inside an open transaction.
func DeleteRecordTxn(txn *badger.Txn, table, id string) error {
	return txn.Delete(RecordKey(table, id))
}

// Get retrieves a single record by table and id.
func (s *Store) Get(ctx context.Context, table, id string) (*models.Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation("get", time.Since(start).Seconds())
	}()

	var rec *models.Record
	err := s.db.View(func(txn *badger.Txn) error {
		var gerr error
		rec, gerr = GetRecordTxn(txn, table, id)
		return gerr
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Put writes a single record.
func (s *Store) Put(ctx context.Context, rec *models.Record) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation("put", time.Since(start).Seconds())
	}()

	return s.db.Update(func(txn *badger.Txn) error {
		return PutRecordTxn(txn, rec)
	})
}

// Delete removes a single record. Deleting an absent record is not an error.
func (s *Store) Delete(ctx context.Context, table, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation("delete", time.Since(start).Seconds())
	}()

	return s.db.Update(func(txn *badger.Txn) error {
		return DeleteRecordTxn(txn, table, id)
	})
}

// QueryRange returns all records in table whose UpdatedAt falls in [lo, hi].
// A zero hi means no upper bound.
func (s *Store) QueryRange(ctx context.Context, table string, lo, hi time.Time) ([]*models.Record, error) {
	return s.Filter(ctx, table, func(rec *models.Record) bool {
		if rec.UpdatedAt.Before(lo) {
			return false
		}
		if !hi.IsZero() && rec.UpdatedAt.After(hi) {
			return false
		}
		return true
	})
}

// Filter scans table and returns records matching pred.
//
// Badger has no secondary indexes, so this is a sequential prefix scan with
// decode. Record volume in this domain is small enough (thousands, not
// millions) that scans stay cheap; revisit if that assumption breaks.
func (s *Store) Filter(ctx context.Context, table string, pred func(*models.Record) bool) ([]*models.Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation("scan", time.Since(start).Seconds())
	}()

	var out []*models.Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := recordKeyPrefix(table)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				rec, derr := decodeRecord(val)
				if derr != nil {
					return fmt.Errorf("key %s: %w", it.Item().Key(), derr)
				}
				if pred == nil || pred(rec) {
					out = append(out, rec)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RunGC runs one round of Badger value log garbage collection.
// Returns nil both when space was reclaimed and when there was nothing to do.
func (s *Store) RunGC(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.cfg.InMemory {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(s.cfg.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("value log gc: %w", err)
		}
	}
}

// decodeRecord canonicalizes stored bytes into a Record. Any decode failure
// is corruption: these bytes were written by us, not by a remote peer.
func decodeRecord(val []byte) (*models.Record, error) {
	rec, err := models.CanonicalizeRecordJSON(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("%w: record has no id", ErrCorrupted)
	}
	return rec, nil
}
