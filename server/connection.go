// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ambient-works-jp/water-controller/hub"
	"github.com/ambient-works-jp/water-controller/lib/netutil"
	"github.com/ambient-works-jp/water-controller/wire"
)

// Disconnect reasons, used as log values and metric labels.
const (
	reasonPeerClosed  = "peer_closed"
	reasonReadFailed  = "read_failed"
	reasonWriteFailed = "write_failed"
	reasonHubClosed   = "hub_closed"
	reasonShutdown    = "shutdown"
)

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		s.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.connections.Add(1)
	defer s.connections.Done()

	binary := conn.Subprotocol() == wire.SubprotocolCBOR
	logger := s.logger.With(
		"connection", s.nextID.Add(1),
		"remote", r.RemoteAddr,
		"format", formatName(binary),
	)

	subscription := s.config.Hub.Subscribe()
	s.connected.Add(1)
	s.config.Metrics.SubscriberConnected()
	logger.Info("subscriber connected", "subscribers", s.Subscribers())

	reason := s.serve(r.Context(), conn, subscription, binary, logger)

	subscription.Close()
	s.connected.Add(-1)
	s.config.Metrics.SubscriberDisconnected(reason)
	if dropped := subscription.Dropped(); dropped > 0 {
		logger.Info("subscriber disconnected", "reason", reason, "dropped", dropped, "subscribers", s.Subscribers())
	} else {
		logger.Info("subscriber disconnected", "reason", reason, "subscribers", s.Subscribers())
	}
}

// serve runs the send and receive tasks for one connection and returns
// why it ended. The connection is closed on return.
func (s *Server) serve(parent context.Context, conn *websocket.Conn, subscription *hub.Subscription[wire.Event], binary bool, logger *slog.Logger) string {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		once   sync.Once
		reason string
	)
	finish := func(why string) {
		once.Do(func() {
			reason = why
			cancel()
		})
	}

	var tasks sync.WaitGroup
	tasks.Add(2)
	go func() {
		defer tasks.Done()
		finish(s.receive(conn, logger))
	}()
	go func() {
		defer tasks.Done()
		finish(s.send(ctx, conn, subscription, binary, logger))
	}()

	<-ctx.Done()
	// Records shutdown unless a task finished first.
	finish(reasonShutdown)

	// Best effort: the peer may already be gone.
	closeCode := websocket.CloseNormalClosure
	if reason == reasonShutdown {
		closeCode = websocket.CloseGoingAway
	}
	deadline := time.Now().Add(s.config.WriteTimeout) //nolint:realclock // kernel I/O deadline
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, ""), deadline)
	// Closing the socket unblocks the receive task's read.
	conn.Close()
	tasks.Wait()
	return reason
}

// send writes events to the socket and pings on PingInterval.
func (s *Server) send(ctx context.Context, conn *websocket.Conn, subscription *hub.Subscription[wire.Event], binary bool, logger *slog.Logger) string {
	pingErr := make(chan error, 1)
	go func() {
		ticker := s.config.Clock.NewTicker(s.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(s.config.WriteTimeout) //nolint:realclock // kernel I/O deadline
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					pingErr <- err
					return
				}
			}
		}
	}()

	messageType := websocket.TextMessage
	if binary {
		messageType = websocket.BinaryMessage
	}

	events := make(chan wire.Event)
	receiveErr := make(chan error, 1)
	go func() {
		for {
			event, err := subscription.Receive(ctx)
			if err != nil {
				receiveErr <- err
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return reasonShutdown
		case err := <-receiveErr:
			if errors.Is(err, hub.ErrClosed) {
				return reasonHubClosed
			}
			return reasonShutdown
		case err := <-pingErr:
			logWriteError(logger, "ping failed", err)
			return reasonWriteFailed
		case event := <-events:
			payload := event.JSON
			if binary {
				payload = event.CBOR
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)) //nolint:realclock // kernel I/O deadline
			if err := conn.WriteMessage(messageType, payload); err != nil {
				logWriteError(logger, "write failed", err)
				return reasonWriteFailed
			}
		}
	}
}

// receive drains the socket so control frames are processed. Data
// frames from a subscriber are discarded without buffering; only a
// close frame or a socket error ends the task.
func (s *Server) receive(conn *websocket.Conn, logger *slog.Logger) string {
	pongWait := 2 * s.config.PingInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:realclock // kernel I/O deadline
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:realclock // kernel I/O deadline
	})

	for {
		messageType, reader, err := conn.NextReader()
		if err == nil {
			var discarded int64
			discarded, err = io.Copy(io.Discard, reader)
			if err == nil {
				logger.Debug("discarded subscriber message", "message_type", messageType, "bytes", discarded)
				continue
			}
		}
		if netutil.IsExpectedCloseError(err) {
			logger.Debug("subscriber closed connection", "error", err)
			return reasonPeerClosed
		}
		logger.Debug("subscriber read failed", "error", err)
		return reasonReadFailed
	}
}

func logWriteError(logger *slog.Logger, message string, err error) {
	if netutil.IsExpectedCloseError(err) {
		logger.Debug(message, "error", err)
		return
	}
	logger.Warn(message, "error", err)
}

func formatName(binary bool) string {
	if binary {
		return "cbor"
	}
	return "json"
}
