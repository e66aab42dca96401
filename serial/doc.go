// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package serial owns the hardware link to the controller.
//
// [Ingest] is the only reader of the device. It runs an explicit state
// machine:
//
//	StateClosed ──▶ StateOpening ──▶ StateReading
//	     ▲              │  ▲               │
//	     │   open fails │  │ retry delay   │ read error
//	     │              ▼  │               │
//	     │         (wait, retry)           │
//	     └─────────────────────────────────┘
//
// Reads are bounded by a short timeout. A timeout is not an error: it
// keeps the loop responsive to cancellation while preserving any
// partially assembled line. Every other read error closes the device,
// waits the retry delay, and reopens it.
//
// Each complete line goes through frame.Parse and, when valid, both
// encoded wire events are handed to a [Publisher]. The loop reads
// whether or not anyone is subscribed, so the device's OS buffer never
// fills with stale samples.
//
// The device is reached through the [Opener] and [Port] interfaces.
// [DeviceOpener] is the real implementation on go.bug.st/serial; tests
// substitute in-memory ports.
package serial
