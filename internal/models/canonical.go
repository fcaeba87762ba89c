// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// recordWire mirrors Record but tolerates the field spellings seen in the
// wild: older clients wrote camelCase, the backend and the store write
// snake_case. Both spellings of a field may appear; snake_case wins when both
// are present since it is the canonical form.
type recordWire struct {
	ID   string     `json:"id"`
	Kind RecordKind `json:"kind"`

	OwnerSnake string `json:"owner_id"`
	OwnerCamel string `json:"ownerId"`

	AmountSnake *int64 `json:"amount_cents"`
	AmountCamel *int64 `json:"amountCents"`

	Currency   string `json:"currency"`
	Category   string `json:"category"`
	Note       string `json:"note"`
	OccurSnake string `json:"occurred_on"`
	OccurCamel string `json:"occurredOn"`

	CreatedSnake *wireTime `json:"created_at"`
	CreatedCamel *wireTime `json:"createdAt"`
	UpdatedSnake *wireTime `json:"updated_at"`
	UpdatedCamel *wireTime `json:"updatedAt"`
}

// wireTime decodes either an RFC3339 string or a Unix epoch in milliseconds.
// Epoch-millisecond timestamps come from clients that used a numeric clock.
type wireTime struct {
	time.Time
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	var millis int64
	if err := json.Unmarshal(data, &millis); err != nil {
		return err
	}
	t.Time = time.UnixMilli(millis).UTC()
	return nil
}

// CanonicalizeRecordJSON decodes raw JSON into the canonical Record shape,
// resolving field-name aliases. It is the single canonicalization step
// applied immediately after every read from the local store or the remote
// backend; nothing past this boundary handles alias spellings.
//
// The returned record is not validated; callers that need shape guarantees
// (the pull engine) call Record.Validate separately so malformed records can
// be counted rather than failing the decode.
func CanonicalizeRecordJSON(raw []byte) (*Record, error) {
	var w recordWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	rec := &Record{
		ID:       w.ID,
		Kind:     w.Kind,
		Currency: w.Currency,
		Category: w.Category,
		Note:     w.Note,
	}

	rec.OwnerID = firstNonEmpty(w.OwnerSnake, w.OwnerCamel)
	rec.OccurredOn = firstNonEmpty(w.OccurSnake, w.OccurCamel)

	switch {
	case w.AmountSnake != nil:
		rec.AmountCents = *w.AmountSnake
	case w.AmountCamel != nil:
		rec.AmountCents = *w.AmountCamel
	}

	if ts := firstTime(w.CreatedSnake, w.CreatedCamel); ts != nil {
		rec.CreatedAt = ts.Time
	}
	if ts := firstTime(w.UpdatedSnake, w.UpdatedCamel); ts != nil {
		rec.UpdatedAt = ts.Time
	}

	return rec, nil
}

// EncodeRecordJSON serializes a record in the canonical snake_case form.
func EncodeRecordJSON(rec *Record) ([]byte, error) {
	return json.Marshal(rec)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstTime(vals ...*wireTime) *wireTime {
	for _, v := range vals {
		if v != nil && !v.IsZero() {
			return v
		}
	}
	return nil
}
