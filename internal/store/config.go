// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package store

import (
	"errors"
	"time"
)

// Config holds local store configuration.
//
// Defaults prioritize durability over throughput: a lost financial record is
// worse than a slow write on every device class this engine targets.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	// Should be on a durable filesystem (not tmpfs).
	Path string

	// InMemory runs Badger without touching disk. Tests only.
	InMemory bool

	// SyncWrites forces fsync after every write for maximum durability.
	SyncWrites bool

	// MemTableSize is the size of each memtable in bytes.
	MemTableSize int64

	// ValueLogFileSize is the size of each value log file in bytes.
	ValueLogFileSize int64

	// NumCompactors is the number of compaction workers.
	NumCompactors int

	// GCInterval is the time between value log garbage collection runs.
	GCInterval time.Duration

	// GCRatio is the ratio for value log garbage collection.
	// Lower values reclaim more space but use more CPU.
	GCRatio float64
}

// DefaultConfig returns a Config with durable defaults.
func DefaultConfig() Config {
	return Config{
		Path:             "/data/fiscus",
		SyncWrites:       true,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		GCInterval:       30 * time.Minute,
		GCRatio:          0.5,
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return errors.New("store path is required")
	}
	if c.NumCompactors < 2 {
		return errors.New("badger requires at least 2 compactors")
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return errors.New("gc ratio must be in (0, 1)")
	}
	return nil
}
