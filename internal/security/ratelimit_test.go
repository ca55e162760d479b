// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"testing"
	"time"
)

// fakeClock advances manually for deterministic window tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := NewRateLimiterWithClock(RateWindow, RateMax, clock.now)

	for i := 0; i < RateMax; i++ {
		if res := rl.Check(); !res.OK {
			t.Fatalf("check %d denied, want allowed", i)
		}
	}
	if res := rl.Check(); res.OK {
		t.Fatal("check over limit allowed, want denied")
	}
	if got := rl.Remaining(); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestRateLimiterWaitHint(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := NewRateLimiterWithClock(RateWindow, RateMax, clock.now)

	for i := 0; i < RateMax; i++ {
		rl.Check()
	}

	clock.advance(15*time.Second + 300*time.Millisecond)
	res := rl.Check()
	if res.OK {
		t.Fatal("expected denial")
	}
	// 44.7s until the oldest send ages out, rounded up to 45s.
	if res.Wait != 45*time.Second {
		t.Errorf("Wait = %v, want 45s", res.Wait)
	}
}

func TestRateLimiterDenialRecordsNothing(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := NewRateLimiterWithClock(RateWindow, RateMax, clock.now)

	for i := 0; i < RateMax; i++ {
		rl.Check()
	}
	for i := 0; i < 100; i++ {
		rl.Check()
	}

	// All original sends age out together; denied checks added no new ones.
	clock.advance(RateWindow + time.Second)
	if got := rl.Remaining(); got != RateMax {
		t.Errorf("Remaining after window = %d, want %d", got, RateMax)
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := NewRateLimiterWithClock(RateWindow, RateMax, clock.now)

	// Half the budget now, half 30s later.
	for i := 0; i < RateMax/2; i++ {
		rl.Check()
	}
	clock.advance(30 * time.Second)
	for i := 0; i < RateMax/2; i++ {
		rl.Check()
	}
	if res := rl.Check(); res.OK {
		t.Fatal("expected denial at capacity")
	}

	// 31s later the first half has aged out, the second half has not.
	clock.advance(31 * time.Second)
	if got := rl.Remaining(); got != RateMax/2 {
		t.Errorf("Remaining = %d, want %d", got, RateMax/2)
	}
	if res := rl.Check(); !res.OK {
		t.Error("expected allowance after partial expiry")
	}
}
