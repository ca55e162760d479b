// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"sync"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// RateWindow is the sliding window over which sends are counted.
const RateWindow = 60 * time.Second

// RateMax is the maximum number of sends allowed per window.
const RateMax = 20

// =============================================================================
// RATE LIMITER
// =============================================================================

// Result is the outcome of a rate limit check. When OK is false, Wait is
// how long until the oldest recorded send ages out of the window.
type Result struct {
	OK   bool
	Wait time.Duration
}

// RateLimiter enforces a sliding-window send limit.
//
// The window is counted, not token-bucketed: each allowed check records a
// timestamp, and timestamps older than the window are pruned before
// counting. Denied checks record nothing.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	sends  []time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter with the default window and limit.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		window: RateWindow,
		max:    RateMax,
		now:    time.Now,
	}
}

// NewRateLimiterWithClock creates a limiter with an injected clock.
func NewRateLimiterWithClock(window time.Duration, max int, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		window: window,
		max:    max,
		now:    now,
	}
}

// Check records a send if capacity remains. On denial it returns the time
// until capacity frees, rounded up to a whole second for display.
func (r *RateLimiter) Check() Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	if len(r.sends) < r.max {
		r.sends = append(r.sends, now)
		return Result{OK: true}
	}

	wait := r.window - now.Sub(r.sends[0])
	if rem := wait % time.Second; rem != 0 {
		wait += time.Second - rem
	}
	return Result{OK: false, Wait: wait}
}

// Remaining returns how many sends are left in the current window.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(r.now())
	return r.max - len(r.sends)
}

// prune drops timestamps that have aged out of the window. Caller holds mu.
func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.sends) && !r.sends[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.sends = r.sends[i:]
	}
}
