// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package relayui

import (
	"time"

	"github.com/ambient-works-jp/water-controller/wire"
)

// ConnectedMsg reports that the stream reached the relay.
type ConnectedMsg struct {
	URL         string
	Subprotocol string
}

// DisconnectedMsg reports that the stream lost (or never reached) the
// relay and will retry after RetryIn.
type DisconnectedMsg struct {
	Err     error
	RetryIn time.Duration
}

// EventMsg carries one decoded relay message.
type EventMsg struct {
	Message    wire.Message
	ReceivedAt time.Time
}

// StreamBridge forwards stream callbacks into the viewer as messages.
// It satisfies client.Handler.
type StreamBridge struct {
	sender Sender
}

// NewStreamBridge returns a bridge delivering to sender.
func NewStreamBridge(sender Sender) *StreamBridge {
	return &StreamBridge{sender: sender}
}

func (bridge *StreamBridge) Connected(url, subprotocol string) {
	bridge.sender.Send(ConnectedMsg{URL: url, Subprotocol: subprotocol})
}

func (bridge *StreamBridge) Message(message wire.Message, receivedAt time.Time) {
	bridge.sender.Send(EventMsg{Message: message, ReceivedAt: receivedAt})
}

func (bridge *StreamBridge) Disconnected(err error, retryIn time.Duration) {
	bridge.sender.Send(DisconnectedMsg{Err: err, RetryIn: retryIn})
}
