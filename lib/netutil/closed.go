// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies connection errors for the subscriber
// server and the client binaries.
package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

// IsExpectedCloseError reports whether err is an ordinary end of a
// subscriber connection: EOF, a closed connection, EPIPE or ECONNRESET
// from a peer that went away, or a WebSocket close frame with a normal,
// going-away, or no-status code. Expected closes are logged at debug
// level; anything else is a warning.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
