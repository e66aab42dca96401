// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds the bounded-wait helpers used by the relay's
// concurrency tests.
//
// [RequireReceive] and [RequireClosed] are the only places tests use
// the wall clock, and only as a hang guard: retry and keepalive timing
// is driven by clock.Fake. Helpers call t.Fatalf rather than returning
// errors.
package testutil

import (
	"fmt"
	"time"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed.
//
//	event := testutil.RequireReceive(t, events, 5*time.Second, "waiting for controller-input")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", formatMessage(msgAndArgs))
		}
		return value
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("timed out after %v: %s", timeout, formatMessage(msgAndArgs))
	}
	panic("unreachable")
}

// RequireClosed waits for ch to close (or deliver) within timeout.
//
//	testutil.RequireClosed(t, done, 5*time.Second, "ingest loop exit")
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("timed out after %v waiting for channel close: %s", timeout, formatMessage(msgAndArgs))
	}
}

// RequireNoReceive fails the test if ch delivers within window. Use it
// sparingly: it always costs window of wall time.
func RequireNoReceive[T any](t TB, ch <-chan T, window time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case value, ok := <-ch:
		if ok {
			t.Fatalf("unexpected value %v: %s", value, formatMessage(msgAndArgs))
		}
		t.Fatalf("unexpected close: %s", formatMessage(msgAndArgs))
	case <-time.After(window): //nolint:realclock negative assertion window
	}
}

func formatMessage(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return "(no message)"
	}
	if len(msgAndArgs) == 1 {
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%v", msgAndArgs)
}
