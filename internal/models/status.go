// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// SyncStatus is the per-record ledger entry tracking whether the record has
// been successfully exchanged with the remote backend.
//
// Exactly one SyncStatus exists for every record in the local store; it is
// created in the same transaction as the record write. An entry whose record
// no longer exists is an orphan and is purged opportunistically.
type SyncStatus struct {
	// RecordID is the id of the tracked record.
	RecordID string `json:"record_id"`

	// Table is the store table holding the record. Kept here so ledger
	// listings can join back to the record without probing every table.
	Table string `json:"table"`

	// Synced is true when the local copy matched the remote copy as of the
	// last successful exchange.
	Synced bool `json:"synced"`

	// LastAttempt is the time of the most recent sync attempt, successful
	// or not. Nil when the record has never been attempted.
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
}

// DeleteQueueEntry records a deletion that could not be confirmed remotely.
// Entries are replayed idempotently on every orchestrator run until the
// remote delete succeeds or reports the record already gone.
type DeleteQueueEntry struct {
	// ID uniquely identifies the queue entry (not the deleted record).
	ID string `json:"id"`

	// Table is the backend table the record lived in.
	Table string `json:"table"`

	// RecordID is the id of the deleted record.
	RecordID string `json:"record_id"`

	// OwnerID scopes the remote delete.
	OwnerID string `json:"owner_id"`

	// Snapshot is the record as of deletion time, kept for diagnostics
	// and potential manual recovery.
	Snapshot json.RawMessage `json:"snapshot,omitempty"`

	// EnqueuedAt is when the entry was created.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Attempts counts replay attempts.
	Attempts int `json:"attempts"`

	// LastAttemptAt is the time of the last replay attempt.
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`

	// LastError is the error message from the last failed replay.
	LastError string `json:"last_error,omitempty"`
}
