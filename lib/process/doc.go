// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the exit paths shared by the relay binaries.
//
// Errors that reach main() are written to stderr, not to the structured
// logger: by the time run() returns, the logger may never have been
// built (flag or config errors) or may be writing JSON nobody reads.
// Exit codes distinguish configuration mistakes, which no retry can
// fix, from runtime failures.
package process
