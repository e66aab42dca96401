// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the messages subscribers receive and their
// encodings.
//
// Every accepted controller sample becomes two independent messages:
//
//	{"type":"button-input","isPushed":true}
//	{"type":"controller-input","left":2,"right":0,"up":1,"down":0}
//
// JSON is the default encoding and is sent as WebSocket text frames.
// Subscribers that negotiate the [SubprotocolCBOR] subprotocol receive
// the same messages encoded with deterministic CBOR in binary frames.
//
// The ingest loop encodes each message once, in both formats, via
// [Encode]; the server never re-encodes per connection. [Decode] and
// [DecodeCBOR] are the inverse, used by the client binaries.
package wire
