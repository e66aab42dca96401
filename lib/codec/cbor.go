// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the relay's CBOR configuration.
//
// JSON text frames are the compatibility contract for subscribers.
// Subscribers that negotiate the binary subprotocol receive the same
// messages CBOR-encoded instead. Encoding uses Core Deterministic
// Encoding (RFC 8949 §4.2) so one message always yields the same bytes,
// which keeps the per-frame encode a pure function exactly like the JSON
// path.
package codec

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	// Unknown fields are ignored so newer relays can add fields
	// without breaking older viewers.
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns RFC 8949 diagnostic notation for data. Used when
// logging binary frames.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
