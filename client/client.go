// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package client subscribes to a relay's event stream.
//
// [Stream] keeps one WebSocket connection to the relay open, decodes
// every frame into a wire.Message, and reconnects with exponential
// backoff whenever the connection ends. It is shared by the logging
// client and the terminal viewer.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ambient-works-jp/water-controller/lib/clock"
	"github.com/ambient-works-jp/water-controller/lib/netutil"
	"github.com/ambient-works-jp/water-controller/wire"
)

const (
	initialBackoff   = 500 * time.Millisecond
	maxBackoff       = 10 * time.Second
	handshakeTimeout = 5 * time.Second
)

// Handler receives stream events. Methods are called from the Run
// goroutine, one at a time.
type Handler interface {
	Connected(url, subprotocol string)
	Message(message wire.Message, receivedAt time.Time)
	Disconnected(err error, retryIn time.Duration)
}

// Stream is a reconnecting subscription to one relay URL.
type Stream struct {
	URL string

	// Binary requests CBOR frames instead of JSON.
	Binary bool

	Handler Handler
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Run connects and delivers messages until ctx is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	if s.Handler == nil {
		return errors.New("client: handler is required")
	}
	clk := s.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	backoff := initialBackoff
	for {
		connected, err := s.runOnce(ctx, clk, logger)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = initialBackoff
		}
		s.Handler.Disconnected(err, backoff)
		logger.Warn("stream disconnected", "url", s.URL, "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-clk.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// runOnce holds a single connection until it ends. connected reports
// whether the handshake succeeded.
func (s *Stream) runOnce(ctx context.Context, clk clock.Clock, logger *slog.Logger) (connected bool, err error) {
	subprotocol := wire.SubprotocolJSON
	if s.Binary {
		subprotocol = wire.SubprotocolCBOR
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{subprotocol},
	}

	conn, response, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return false, fmt.Errorf("connecting to %s: %w", s.URL, err)
	}
	response.Body.Close()
	defer conn.Close()

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		deadline := time.Now().Add(time.Second) //nolint:realclock // kernel I/O deadline
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	})
	defer stop()

	// A relay that does not honour the requested subprotocol sends JSON.
	binary := conn.Subprotocol() == wire.SubprotocolCBOR
	s.Handler.Connected(s.URL, conn.Subprotocol())

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || netutil.IsExpectedCloseError(err) {
				return true, fmt.Errorf("connection closed: %w", err)
			}
			return true, fmt.Errorf("reading: %w", err)
		}

		var message wire.Message
		switch {
		case binary && messageType == websocket.BinaryMessage:
			message, err = wire.DecodeCBOR(data)
		case messageType == websocket.TextMessage:
			message, err = wire.Decode(data)
		default:
			err = fmt.Errorf("unexpected frame type %d", messageType)
		}
		if err != nil {
			logger.Warn("undecodable message", "error", err, "bytes", len(data))
			continue
		}
		s.Handler.Message(message, clk.Now())
	}
}
