// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package relayui implements the terminal viewer for a running relay.
//
// The viewer subscribes to the relay's WebSocket stream (via
// client.Stream, bridged into bubbletea by [StreamBridge]) and shows
// five tabs: a live Monitor of the button and the four directions, a
// bounded History of received messages, Connection details, the
// viewer's own Log (routed from slog by [TUILogHandler]), and Help.
package relayui
