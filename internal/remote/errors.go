// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Sentinel errors for non-transient backend responses.
var (
	// ErrAuthRequired indicates the backend rejected our credentials.
	// The engine treats this as "sync does not run", not as a failure.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNotFound indicates the addressed record does not exist remotely.
	// For deletes this is success: the record is already gone.
	ErrNotFound = errors.New("remote record not found")

	// ErrRejected indicates the backend refused the request as malformed.
	// Retrying the same payload will not help.
	ErrRejected = errors.New("remote rejected request")
)

// TransientError wraps a failure that is expected to heal on its own:
// network unreachable, timeouts, 5xx responses, open circuit breaker.
// The orchestrator retries these on its next trigger, indefinitely.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is a retry-on-next-trigger failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// IsNotFound reports whether err means the remote record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthRequired reports whether err means credentials are missing or stale.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}
