// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package engine is the core of the offline-first synchronization engine:
// the pull engine, the push engine, and the single-flight orchestrator that
// sequences them.
//
// # Merge model
//
// Conflict resolution is record-level last-write-wins on the UpdatedAt merge
// clock. Pull merges remote records that are strictly newer than the local
// copy; ties favor local to avoid needless overwrites. Pull never deletes
// local records absent from the remote result set: deletion is push-driven
// only, so a partial or paginated fetch can never destroy local data.
//
// # Failure model
//
// Every operation is a sequence of independently idempotent record-at-a-time
// steps, so a run killed mid-flight leaves at most a handful of records in
// "attempted but unsynced" state, never corrupted. Operations return result
// summaries (merged/skipped/failed counts) instead of failing on partial
// errors; only local store corruption propagates as an error.
//
// # Triggers
//
// The orchestrator runs on connectivity recovery (high confidence only),
// identity establishment, a periodic timer (Scheduler), and manual request.
// Runs are single-flight: a trigger while a run is in progress is a no-op,
// not queued; the next natural trigger re-runs. Without an authenticated
// owner every trigger is a silent no-op with zero side effects.
package engine
