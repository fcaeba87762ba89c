// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package store implements the local store adapter over BadgerDB.
//
// The store persists financial records on-device so the application remains
// fully usable offline. It owns no sync logic: it exposes typed CRUD, range
// queries over the UpdatedAt merge clock, predicate scans, and atomic
// multi-key transactions that the ledger and delete queue packages compose
// with record writes.
//
// # Key layout
//
// A single Badger database holds three keyspaces:
//
//	rec:<table>:<id>   records (owned by this package)
//	sync:<id>          ledger entries (owned by internal/ledger)
//	del:<id>           delete queue entries (owned by internal/queue)
//
// Sharing one database is what makes "record write + ledger row" a single
// ACID transaction, the invariant the sync status ledger depends on.
//
// # Canonicalization
//
// Every value read from disk passes through models.CanonicalizeRecordJSON
// before it is returned, so callers only ever see the canonical record
// shape regardless of which client version wrote the bytes.
//
// # Corruption
//
// A value that cannot be decoded is reported as ErrCorrupted. This is the
// only error class the engine treats as fatal: it means the store itself is
// unreliable and automatic repair would be unsafe.
package store
