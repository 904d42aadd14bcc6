// Copyright 2026 The Fand Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called. Tickers register pending waiters that
// fire when the clock advances past their deadline.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.waitersChanged = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for testing. Time advances only
// when Advance is called.
type FakeClock struct {
	mu             sync.Mutex
	current        time.Time
	waiters        []*fakeWaiter
	waitersChanged *sync.Cond
}

// fakeWaiter represents a pending Ticker.
type fakeWaiter struct {
	deadline time.Time

	// channel receives the fire time.
	channel chan time.Time

	// interval reschedules the waiter at deadline + interval after
	// each fire.
	interval time.Duration

	// stopped is set by Ticker.Stop. Stopped waiters are skipped
	// during Advance and garbage-collected.
	stopped bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker returns a Ticker firing every d of fake time. Panics if
// d <= 0, matching time.NewTicker.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for FakeClock.NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	waiter := &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  channel,
		interval: d,
	}
	c.addWaiter(waiter)

	return &Ticker{
		C: channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			waiter.stopped = true
		},
	}
}

// Advance moves the fake time forward by d, firing every waiter whose
// deadline falls within the advanced window, in deadline order.
// Tickers fire once for each elapsed interval.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.current.Add(d)

	for {
		waiter := c.nextFireableWaiter(target)
		if waiter == nil {
			break
		}

		// Time visibly advances to the waiter's deadline before it
		// fires, so a waiter reading Now() inside its handler sees a
		// consistent value.
		if waiter.deadline.After(c.current) {
			c.current = waiter.deadline
		}

		select {
		case waiter.channel <- waiter.deadline:
		default:
			// Capacity-1 channel already holds an undelivered tick.
			// Drop, matching time.Ticker.
		}

		waiter.deadline = waiter.deadline.Add(waiter.interval)
	}

	c.current = target
	c.compactWaiters()
}

// WaiterCount returns the number of pending (unstopped) waiters.
// Tests use this to confirm that a component has registered its
// ticker before calling Advance.
func (c *FakeClock) WaiterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, waiter := range c.waiters {
		if !waiter.stopped {
			count++
		}
	}
	return count
}

// BlockUntilWaiters blocks until at least n waiters are registered.
// Use this to synchronize with a goroutine that is about to tick
// before advancing the clock.
func (c *FakeClock) BlockUntilWaiters(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		count := 0
		for _, waiter := range c.waiters {
			if !waiter.stopped {
				count++
			}
		}
		if count >= n {
			return
		}
		c.waitersChanged.Wait()
	}
}

// addWaiter registers a waiter. Caller must hold mu.
func (c *FakeClock) addWaiter(waiter *fakeWaiter) {
	c.waiters = append(c.waiters, waiter)
	c.waitersChanged.Broadcast()
}

// nextFireableWaiter returns the pending waiter with the earliest
// deadline at or before target, or nil. Caller must hold mu.
func (c *FakeClock) nextFireableWaiter(target time.Time) *fakeWaiter {
	candidates := make([]*fakeWaiter, 0, len(c.waiters))
	for _, waiter := range c.waiters {
		if waiter.stopped {
			continue
		}
		if !waiter.deadline.After(target) {
			candidates = append(candidates, waiter)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].deadline.Before(candidates[j].deadline)
	})
	return candidates[0]
}

// compactWaiters drops stopped waiters. Caller must hold mu.
func (c *FakeClock) compactWaiters() {
	remaining := c.waiters[:0]
	for _, waiter := range c.waiters {
		if !waiter.stopped {
			remaining = append(remaining, waiter)
		}
	}
	c.waiters = remaining
}
