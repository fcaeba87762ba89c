// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package models defines the data types exchanged between the local store,
// the sync engine, and the remote backend.
//
// The central type is Record, a financial record (expense or income) with an
// immutable identity and an UpdatedAt merge clock. Sync bookkeeping types
// (SyncStatus, DeleteQueueEntry) live here as well so that the store, ledger,
// and queue packages share one canonical shape.
//
// All decoding from external representations (store bytes, remote responses)
// goes through CanonicalizeRecordJSON, which resolves snake_case/camelCase
// field aliases into the one canonical Record shape. The rest of the engine
// never sees a non-canonical record.
package models
