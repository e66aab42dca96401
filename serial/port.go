// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	bugserial "go.bug.st/serial"
)

// Port is an open serial device. Read returns (0, nil) when the read
// timeout expires with no data.
type Port interface {
	io.Reader
	io.Closer
}

// Opener opens a serial device.
type Opener interface {
	Open(device string, baudRate int, readTimeout time.Duration) (Port, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(device string, baudRate int, readTimeout time.Duration) (Port, error)

func (f OpenerFunc) Open(device string, baudRate int, readTimeout time.Duration) (Port, error) {
	return f(device, baudRate, readTimeout)
}

// DeviceOpener opens real devices with 8N1 framing.
type DeviceOpener struct{}

// Open opens device at baudRate and sets the per-read timeout.
func (DeviceOpener) Open(device string, baudRate int, readTimeout time.Duration) (Port, error) {
	port, err := bugserial.Open(device, &bugserial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   bugserial.NoParity,
		StopBits: bugserial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s at %d baud: %w", device, baudRate, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", device, err)
	}
	return port, nil
}

// isTimeout reports whether a read error only means the timeout expired.
func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
