// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package models

import (
	"errors"
	"testing"
	"time"
)

func validRecord() *Record {
	return &Record{
		ID:          "rec-1",
		OwnerID:     "owner-1",
		Kind:        KindExpense,
		AmountCents: 1250,
		Currency:    "EUR",
		Category:    "groceries",
		CreatedAt:   time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestKindTable(t *testing.T) {
	tests := []struct {
		kind RecordKind
		want string
	}{
		{KindExpense, TableExpenses},
		{KindIncome, TableIncomes},
	}
	for _, tt := range tests {
		if got := tt.kind.Table(); got != tt.want {
			t.Errorf("Table(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestKindForTable(t *testing.T) {
	tests := []struct {
		table   string
		want    RecordKind
		wantErr bool
	}{
		{TableExpenses, KindExpense, false},
		{TableIncomes, KindIncome, false},
		{"sessions", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := KindForTable(tt.table)
		if (err != nil) != tt.wantErr {
			t.Errorf("KindForTable(%q) error = %v, wantErr %v", tt.table, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("KindForTable(%q) = %q, want %q", tt.table, got, tt.want)
		}
	}
}

func TestTouchAdvances(t *testing.T) {
	rec := validRecord()
	before := rec.UpdatedAt

	rec.Touch(before.Add(5 * time.Second))
	if !rec.UpdatedAt.After(before) {
		t.Errorf("Touch did not advance UpdatedAt: %v", rec.UpdatedAt)
	}
}

func TestTouchClockStalled(t *testing.T) {
	rec := validRecord()
	before := rec.UpdatedAt

	// Same instant: the merge clock must still move forward.
	rec.Touch(before)
	if !rec.UpdatedAt.After(before) {
		t.Errorf("Touch with stalled clock did not advance UpdatedAt: %v", rec.UpdatedAt)
	}
}

func TestTouchClockWentBackwards(t *testing.T) {
	rec := validRecord()
	before := rec.UpdatedAt

	rec.Touch(before.Add(-time.Hour))
	if !rec.UpdatedAt.After(before) {
		t.Errorf("Touch with backwards clock did not advance UpdatedAt: %v", rec.UpdatedAt)
	}
}

func TestNewerThan(t *testing.T) {
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		a, b  time.Time
		aWins bool
	}{
		{"strictly newer", base.Add(time.Second), base, true},
		{"strictly older", base, base.Add(time.Second), false},
		{"tie favors incumbent", base, base, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validRecord()
			a.UpdatedAt = tt.a
			b := validRecord()
			b.UpdatedAt = tt.b
			if got := a.NewerThan(b); got != tt.aWins {
				t.Errorf("NewerThan() = %v, want %v", got, tt.aWins)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Record)
		wantErr bool
	}{
		{"valid", func(r *Record) {}, false},
		{"valid income", func(r *Record) { r.Kind = KindIncome }, false},
		{"missing id", func(r *Record) { r.ID = "" }, true},
		{"missing owner", func(r *Record) { r.OwnerID = "" }, true},
		{"unknown kind", func(r *Record) { r.Kind = "transfer" }, true},
		{"negative amount", func(r *Record) { r.AmountCents = -1 }, true},
		{"bad currency", func(r *Record) { r.Currency = "EURO" }, true},
		{"empty currency allowed", func(r *Record) { r.Currency = "" }, false},
		{"zero updated_at", func(r *Record) { r.UpdatedAt = time.Time{} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)
			err := rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidRecord", err)
			}
		})
	}
}
