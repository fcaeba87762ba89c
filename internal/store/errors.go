// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package store

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrCorrupted indicates a stored value could not be decoded.
	// This is the only error class the sync engine treats as fatal.
	ErrCorrupted = errors.New("local store corrupted")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store is closed")
)
