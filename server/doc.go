// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package server is the subscriber-facing side of the relay.
//
// Each WebSocket connection on the stream path becomes one hub
// subscription served by two tasks:
//
//   - send: hub → socket. Writes every event in the format the client
//     negotiated and pings the peer every PingInterval. Ends when a
//     write fails or the subscription closes.
//   - receive: socket → discard. Subscribers never send data; the
//     task exists to process control frames (pong, close) and to notice
//     a vanished peer. Each pong extends the read deadline. Ends on a
//     close frame, a read error, or a missed deadline.
//
// Whichever task ends first cancels the other. The connection is then
// sent a best-effort close frame, closed, and unsubscribed.
//
// Clients choose an encoding with the Sec-WebSocket-Protocol header:
// wire.SubprotocolCBOR gets binary CBOR frames; wire.SubprotocolJSON or
// no subprotocol gets JSON text frames.
//
// The server also answers /healthz with a JSON status document and,
// when a metrics handler is configured, /metrics.
package server
