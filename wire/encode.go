// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ambient-works-jp/water-controller/frame"
	"github.com/ambient-works-jp/water-controller/lib/codec"
)

// WebSocket subprotocols a subscriber may request. Without one, the
// subscriber gets JSON.
const (
	SubprotocolJSON = "water-controller.json"
	SubprotocolCBOR = "water-controller.cbor"
)

// ErrUnknownType is returned by Decode for a message whose type field
// names no message this package defines.
var ErrUnknownType = errors.New("wire: unknown message type")

// Event is one message encoded in every supported format. Events are
// immutable once built and are shared by all subscribers.
type Event struct {
	Type string
	JSON []byte
	CBOR []byte
}

// Encode maps f to its two messages and encodes both. The same frame
// always yields byte-identical events.
func Encode(f frame.Frame) (button, controller Event, err error) {
	buttonMessage, controllerMessage := FromFrame(f)
	if button, err = EncodeMessage(buttonMessage); err != nil {
		return Event{}, Event{}, err
	}
	if controller, err = EncodeMessage(controllerMessage); err != nil {
		return Event{}, Event{}, err
	}
	return button, controller, nil
}

// EncodeMessage encodes a single message in every format.
func EncodeMessage(m Message) (Event, error) {
	jsonData, err := json.Marshal(m)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s as JSON: %w", m.MessageType(), err)
	}
	cborData, err := codec.Marshal(m)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s as CBOR: %w", m.MessageType(), err)
	}
	return Event{Type: m.MessageType(), JSON: jsonData, CBOR: cborData}, nil
}

type envelope struct {
	Type string `json:"type" cbor:"type"`
}

// Decode parses a JSON message.
func Decode(data []byte) (Message, error) {
	var head envelope
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	return decodeAs(head.Type, func(v any) error {
		return json.Unmarshal(data, v)
	})
}

// DecodeCBOR parses a CBOR message.
func DecodeCBOR(data []byte) (Message, error) {
	var head envelope
	if err := codec.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	return decodeAs(head.Type, func(v any) error {
		return codec.Unmarshal(data, v)
	})
}

func decodeAs(messageType string, decode func(any) error) (Message, error) {
	switch messageType {
	case TypeButtonInput:
		var m ButtonInput
		if err := decode(&m); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", messageType, err)
		}
		return m, nil
	case TypeControllerInput:
		var m ControllerInput
		if err := decode(&m); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", messageType, err)
		}
		for _, level := range []Level{m.Left, m.Right, m.Up, m.Down} {
			if !level.Valid() {
				return nil, fmt.Errorf("decoding %s: level %d out of range", messageType, level)
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, messageType)
	}
}
