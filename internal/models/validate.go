// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package models

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRecord marks a record that fails shape validation.
// Pull skips and counts such records; it never aborts a batch over them.
var ErrInvalidRecord = errors.New("invalid record")

// singleton validator instance (thread-safe, caches struct info)
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validateRecord runs struct validation and wraps failures in ErrInvalidRecord
// so callers can classify with errors.Is without importing the validator.
func validateRecord(r *Record) error {
	if err := validatorInstance().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: field %s failed %q", ErrInvalidRecord, f.Field(), f.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}
