// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze wraps the external AI content-analysis service with
// batching, retry, and quota tracking.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// ErrQuotaExceeded reports that no quota became available within the
// configured wait. Affected items are deferred to the next run, not dropped.
var ErrQuotaExceeded = errors.New("analysis quota exceeded")

// ServiceError is a batch-scoped failure after the single retry; every item
// of the affected batch is marked failed(analysis).
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("analysis service: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Request pairs one item with its extracted plain text.
type Request struct {
	ItemID  string
	Title   string
	Authors []string
	Text    string
}

// Backend performs one raw analysis call for a batch of papers. Implemented
// by ClaudeBackend; tests supply a mock.
type Backend interface {
	Analyze(ctx context.Context, profile types.UserProfile, batch []Request) (map[string]types.AnalysisResult, error)
}

// Client adds batching, per-call timeout, one retry with backoff, and
// shared quota enforcement on top of a Backend.
type Client struct {
	backend Backend
	quota   *Quota
	cfg     types.AnalysisConfig
}

// NewClient builds an analysis client. The quota is shared across all
// callers of this client.
func NewClient(backend Backend, cfg types.AnalysisConfig) *Client {
	limit := cfg.QuotaLimit
	if limit <= 0 {
		limit = 15
	}
	window := cfg.QuotaWindow
	if window <= 0 {
		window = time.Minute
	}
	if cfg.QuotaWait <= 0 {
		cfg.QuotaWait = 30 * time.Second
	}
	return &Client{
		backend: backend,
		quota:   NewQuota(limit, window),
		cfg:     cfg,
	}
}

// Analyze processes the batch in sub-batches of at most the configured
// batch size and returns a mapping of item ID to findings. Partial success
// is accepted: items the service did not report are simply absent from the
// map and the caller decides their fate from the returned error.
//
// On quota exhaustion the error wraps ErrQuotaExceeded and the results
// gathered so far are still returned; remaining items should be deferred.
// On a call failing after its retry the error is a *ServiceError and
// unreported items should be marked failed.
func (c *Client) Analyze(ctx context.Context, profile types.UserProfile, batch []Request) (map[string]types.AnalysisResult, error) {
	size := c.cfg.BatchSize
	if size <= 0 {
		size = 10
	}

	results := make(map[string]types.AnalysisResult, len(batch))
	for start := 0; start < len(batch); start += size {
		end := start + size
		if end > len(batch) {
			end = len(batch)
		}
		sub := batch[start:end]

		if err := c.quota.Acquire(ctx, c.cfg.QuotaWait); err != nil {
			return results, fmt.Errorf("acquiring quota: %w", err)
		}

		found, err := c.callOnce(ctx, profile, sub)
		if err != nil {
			// One retry with backoff, then the batch fails.
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(c.retryDelay()):
			}
			if err = c.quota.Acquire(ctx, c.cfg.QuotaWait); err != nil {
				return results, fmt.Errorf("acquiring quota for retry: %w", err)
			}
			found, err = c.callOnce(ctx, profile, sub)
			if err != nil {
				return results, &ServiceError{Err: err}
			}
		}

		for id, r := range found {
			results[id] = r
		}
	}
	return results, nil
}

func (c *Client) callOnce(ctx context.Context, profile types.UserProfile, sub []Request) (map[string]types.AnalysisResult, error) {
	timeout := c.cfg.CallTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.backend.Analyze(callCtx, profile, sub)
}

func (c *Client) retryDelay() time.Duration {
	if c.cfg.RetryDelay > 0 {
		return c.cfg.RetryDelay
	}
	return 5 * time.Second
}
