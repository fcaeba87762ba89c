// Fiscus - Offline-First Financial Record Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fiscus

// Package remote implements the HTTP client for the remote record backend.
//
// The backend exposes three owner-scoped operations: batch upsert keyed by
// record id, delete by id, and select ordered by the UpdatedAt merge clock.
// Every call is assumed network-hostile (it may time out, fail transiently,
// or be unreachable), so calls run through a circuit breaker and errors are
// classified into the taxonomy in errors.go. The sync engine decides retry
// policy; this package only reports what kind of failure occurred.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/fiscus/internal/metrics"
	"github.com/tomtom215/fiscus/internal/models"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// Config holds remote backend client configuration.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.example.com".
	BaseURL string

	// APIKey is sent as a bearer token on every request.
	APIKey string

	// Timeout bounds each HTTP request.
	// Default: 15s
	Timeout time.Duration

	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64

	// Burst is the limiter burst size when throttling is enabled.
	Burst int
}

// DefaultConfig returns client defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           15 * time.Second,
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// Client talks to the remote record backend over HTTP/JSON.
// All methods are safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
}

// NewClient creates a backend client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker("record-backend"),
		limiter: limiter,
	}
}

// upsertRequest is the batch upsert wire format. The conflict key tells the
// backend to replace rows by record id rather than append.
type upsertRequest struct {
	Records     []*models.Record `json:"records"`
	ConflictKey string           `json:"conflict_key"`
}

// selectResponse is the select wire format. Records stay raw here; the pull
// engine canonicalizes and validates each one so a single malformed record
// cannot fail the batch.
type selectResponse struct {
	Records []json.RawMessage `json:"records"`
}

// Upsert writes records to the backend keyed by id. Replaying an upsert with
// the same records is safe.
func (c *Client) Upsert(ctx context.Context, table string, records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}
	body, err := json.Marshal(upsertRequest{Records: records, ConflictKey: "id"})
	if err != nil {
		return fmt.Errorf("encode upsert: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, c.endpoint(table, "upsert"), body)
	return err
}

// DeleteRecord removes a record from the backend, scoped to its owner.
// Returns ErrNotFound when the record is already gone.
func (c *Client) DeleteRecord(ctx context.Context, table, id, ownerID string) error {
	u := c.endpoint(table, url.PathEscape(id)) + "?owner_id=" + url.QueryEscape(ownerID)
	_, err := c.do(ctx, http.MethodDelete, u, nil)
	return err
}

// Select fetches up to limit records for the owner, ordered by updated_at
// descending. Records are returned raw for boundary canonicalization by the
// caller.
func (c *Client) Select(ctx context.Context, table, ownerID string, limit int) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("owner_id", ownerID)
	q.Set("order", "updated_at.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.do(ctx, http.MethodGet, c.endpoint(table)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp selectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, Transient("select "+table, fmt.Errorf("decode response: %w", err))
	}
	return resp.Records, nil
}

// endpoint builds a backend URL under /v1/records.
func (c *Client) endpoint(parts ...string) string {
	u := c.cfg.BaseURL + "/v1/records"
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

// do issues one request through the rate limiter and circuit breaker, and
// maps the response onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	op := method + " " + rawURL

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	result, err := c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, rerr := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if rerr != nil {
			return nil, fmt.Errorf("build request: %w", rerr)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, derr := c.http.Do(req)
		if derr != nil {
			return nil, Transient(op, derr)
		}
		defer resp.Body.Close() //nolint:errcheck // read-side close

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			data, berr := io.ReadAll(resp.Body)
			if berr != nil {
				return nil, Transient(op, berr)
			}
			return data, nil
		}
		return nil, classifyStatus(op, resp.StatusCode, readBodyForError(resp.Body))
	})

	if err != nil {
		if IsTransient(err) {
			metrics.CircuitBreakerRequests.WithLabelValues("record-backend", "failure").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues("record-backend", "rejected").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues("record-backend", "success").Inc()
	return result, nil
}

// classifyStatus maps an HTTP status to the error taxonomy.
func classifyStatus(op string, status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w (status %d)", op, ErrAuthRequired, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return Transient(op, fmt.Errorf("status %d: %s", status, body))
	default:
		return fmt.Errorf("%s: %w (status %d): %s", op, ErrRejected, status, body)
	}
}

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	limited := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}
