// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests. Time only moves
// when Advance is called; pending After channels and tickers fire as
// the clock passes their deadlines. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*waiter
	changed *sync.Cond
}

// waiter is one outstanding After channel or ticker.
type waiter struct {
	deadline time.Time
	channel  chan time.Time
	// period is non-zero for tickers, which are rescheduled after firing.
	period  time.Duration
	stopped bool
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	fake := &FakeClock{now: start}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a one-shot waiter. A non-positive d fires at once
// without registering.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.pending = append(c.pending, &waiter{deadline: c.now.Add(d), channel: channel})
	c.changed.Broadcast()
	return channel
}

// NewTicker registers a periodic waiter.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker period")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	entry := &waiter{deadline: c.now.Add(d), channel: channel, period: d}
	c.pending = append(c.pending, entry)
	c.changed.Broadcast()

	return &Ticker{
		C: channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.stopped = true
		},
	}
}

// Advance moves the clock forward by d and fires every waiter whose
// deadline is now due, earliest first. Sends never block: a ticker whose
// previous tick is unread loses the new one, as with time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool {
			return due[i].deadline.Before(due[j].deadline)
		})
		for _, entry := range due {
			select {
			case entry.channel <- target:
			default:
			}
		}
	}
}

// takeDue removes due one-shot waiters, reschedules due tickers, and
// returns everything that should fire at target.
func (c *FakeClock) takeDue(target time.Time) []*waiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, keep []*waiter
	for _, entry := range c.pending {
		switch {
		case entry.stopped:
		case entry.deadline.After(target):
			keep = append(keep, entry)
		default:
			due = append(due, entry)
		}
	}
	for _, entry := range due {
		if entry.period > 0 {
			entry.deadline = entry.deadline.Add(entry.period)
			keep = append(keep, entry)
		}
	}
	c.pending = keep
	return due
}

// WaitForTimers blocks until at least n waiters are pending. Call it
// before Advance so the goroutine under test has registered its timer.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of active waiters.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *FakeClock) activeLocked() int {
	count := 0
	for _, entry := range c.pending {
		if !entry.stopped {
			count++
		}
	}
	return count
}
