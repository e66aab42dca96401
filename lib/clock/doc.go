// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source injected into the relay's retry and
// keepalive loops.
//
// The serial ingest loop waits a fixed delay between reconnect attempts,
// the supervisor waits between unit restarts, and the subscriber server
// pings peers on an interval. All of them take a [Clock] instead of
// calling the time package so tests can drive reconnects without
// sleeping:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	ingest := serial.NewIngest(serial.Config{Clock: fake, ...})
//	go ingest.Run(ctx)
//	fake.WaitForTimers(1)        // ingest is waiting out its retry delay
//	fake.Advance(time.Second)    // reopen now
//
// Production code uses [Real].
package clock
