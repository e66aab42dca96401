// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the subset of the time package the relay depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once d has elapsed. A
	// non-positive d fires immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker firing every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. C has capacity 1; ticks that
// arrive while the previous one is unread are dropped.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns the ticker off. It does not close C.
func (t *Ticker) Stop() { t.stop() }
