// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package models

import (
	"fmt"
	"time"
)

// RecordKind identifies the domain payload carried by a Record.
type RecordKind string

const (
	// KindExpense is money leaving the owner's accounts.
	KindExpense RecordKind = "expense"

	// KindIncome is money entering the owner's accounts.
	KindIncome RecordKind = "income"
)

// Table names used by the local store and the remote backend.
const (
	TableExpenses = "expenses"
	TableIncomes  = "incomes"
)

// Table returns the store/backend table for this kind.
func (k RecordKind) Table() string {
	if k == KindIncome {
		return TableIncomes
	}
	return TableExpenses
}

// KindForTable returns the RecordKind stored in the given table.
func KindForTable(table string) (RecordKind, error) {
	switch table {
	case TableExpenses:
		return KindExpense, nil
	case TableIncomes:
		return KindIncome, nil
	default:
		return "", fmt.Errorf("unknown table %q", table)
	}
}

// Tables lists all record tables, in sync processing order.
func Tables() []string {
	return []string{TableExpenses, TableIncomes}
}

// Record is a single financial record owned by one user.
//
// Identity (ID) is caller-generated and immutable; CreatedAt is set once at
// creation; UpdatedAt advances monotonically on every mutation and serves as
// the last-write-wins merge clock. Whichever side of a sync holds the larger
// UpdatedAt holds the authoritative copy of the record.
type Record struct {
	ID      string     `json:"id" validate:"required"`
	OwnerID string     `json:"owner_id" validate:"required"`
	Kind    RecordKind `json:"kind" validate:"required,oneof=expense income"`

	// Domain fields.
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Category    string `json:"category"`
	Note        string `json:"note,omitempty"`
	OccurredOn  string `json:"occurred_on,omitempty"` // calendar date, YYYY-MM-DD

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" validate:"required"`
}

// Touch advances UpdatedAt to now, never letting it go backwards.
// Call on every mutation before writing to the local store.
func (r *Record) Touch(now time.Time) {
	now = now.UTC()
	if now.After(r.UpdatedAt) {
		r.UpdatedAt = now
		return
	}
	// Wall clock went backwards or stalled within timestamp resolution.
	// The merge clock must still advance so the mutation wins over the
	// previous version of this record.
	r.UpdatedAt = r.UpdatedAt.Add(time.Millisecond)
}

// NewerThan reports whether r should win a last-write-wins merge against
// other. Equal timestamps return false: ties favor the incumbent copy.
func (r *Record) NewerThan(other *Record) bool {
	return r.UpdatedAt.After(other.UpdatedAt)
}

// Validate checks the record against its validation tags.
// Returns an error wrapping ErrInvalidRecord on failure.
func (r *Record) Validate() error {
	return validateRecord(r)
}
