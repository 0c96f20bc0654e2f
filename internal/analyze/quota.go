// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"sync"
	"time"
)

// Quota is a shared call budget over a sliding time window. Workers block
// cooperatively in Acquire until a slot frees up; there is no busy-spin.
type Quota struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// NewQuota builds a quota allowing limit calls per window.
func NewQuota(limit int, window time.Duration) *Quota {
	return &Quota{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Acquire consumes one call slot, blocking until one is available, the
// context is cancelled, or wait elapses. A zero wait means do not block at
// all. On expiry it returns ErrQuotaExceeded so the caller can defer the
// batch to the next run.
func (q *Quota) Acquire(ctx context.Context, wait time.Duration) error {
	deadline := q.now().Add(wait)

	for {
		q.mu.Lock()
		now := q.now()
		q.prune(now)
		if len(q.stamps) < q.limit {
			q.stamps = append(q.stamps, now)
			q.mu.Unlock()
			return nil
		}
		// Oldest call ages out first.
		eligible := q.stamps[0].Add(q.window)
		q.mu.Unlock()

		if !eligible.Before(deadline) {
			return ErrQuotaExceeded
		}

		timer := time.NewTimer(eligible.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// prune drops stamps that have aged out of the window. Callers hold mu.
func (q *Quota) prune(now time.Time) {
	cut := 0
	for cut < len(q.stamps) && now.Sub(q.stamps[cut]) >= q.window {
		cut++
	}
	if cut > 0 {
		q.stamps = append(q.stamps[:0], q.stamps[cut:]...)
	}
}
