// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import "unicode/utf8"

// Reasons a line is discarded before it reaches the parser. They share
// a label space with frame.Kind rule names.
const (
	RejectLineTooLong = "line_too_long"
	RejectInvalidUTF8 = "invalid_utf8"
)

// lineAssembler turns a byte stream into lines. '\n' ends a line and
// '\r' is dropped wherever it appears. A line longer than maxLength
// bytes is discarded up to its terminating '\n' and reported once.
type lineAssembler struct {
	maxLength int
	buffer    []byte
	overflow  bool
}

func newLineAssembler(maxLength int) *lineAssembler {
	return &lineAssembler{maxLength: maxLength, buffer: make([]byte, 0, maxLength)}
}

// feed consumes data, calling emit for each complete line and reject
// for each discarded one. The line passed to emit is only valid for the
// duration of the call.
func (a *lineAssembler) feed(data []byte, emit func(line []byte), reject func(reason string, prefix []byte)) {
	for _, b := range data {
		switch b {
		case '\r':
		case '\n':
			if a.overflow {
				a.overflow = false
			} else if !utf8.Valid(a.buffer) {
				reject(RejectInvalidUTF8, a.buffer)
			} else {
				emit(a.buffer)
			}
			a.buffer = a.buffer[:0]
		default:
			if a.overflow {
				continue
			}
			if len(a.buffer) >= a.maxLength {
				reject(RejectLineTooLong, a.buffer)
				a.buffer = a.buffer[:0]
				a.overflow = true
				continue
			}
			a.buffer = append(a.buffer, b)
		}
	}
}

// pending returns the number of bytes of the unfinished line.
func (a *lineAssembler) pending() int { return len(a.buffer) }

// reset drops any partial line. Called when the device is reopened:
// bytes from before a reconnect never join bytes from after it.
func (a *lineAssembler) reset() {
	a.buffer = a.buffer[:0]
	a.overflow = false
}
