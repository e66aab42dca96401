// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ambient-works-jp/water-controller/frame"
)

func mustParse(t *testing.T, line string) frame.Frame {
	t.Helper()
	f, err := frame.Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	return f
}

func TestEncodeJSON(t *testing.T) {
	tests := []struct {
		name           string
		line           string
		wantButton     string
		wantController string
	}{
		{
			name:           "idle",
			line:           "0,0,0,0,0,0,0,0,0",
			wantButton:     `{"type":"button-input","isPushed":false}`,
			wantController: `{"type":"controller-input","left":0,"right":0,"up":0,"down":0}`,
		},
		{
			name:           "mixed",
			line:           "1,1,0,1,1,1,0,1,1",
			wantButton:     `{"type":"button-input","isPushed":true}`,
			wantController: `{"type":"controller-input","left":2,"right":2,"up":1,"down":1}`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			button, controller, err := Encode(mustParse(t, test.line))
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if string(button.JSON) != test.wantButton {
				t.Errorf("expected %s, got %s", test.wantButton, button.JSON)
			}
			if string(controller.JSON) != test.wantController {
				t.Errorf("expected %s, got %s", test.wantController, controller.JSON)
			}
			if button.Type != TypeButtonInput || controller.Type != TypeControllerInput {
				t.Errorf("unexpected event types %q, %q", button.Type, controller.Type)
			}
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	f := mustParse(t, "1,1,1,0,0,1,0,1,1")
	firstButton, firstController, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 100; i++ {
		button, controller, err := Encode(f)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if !bytes.Equal(button.JSON, firstButton.JSON) || !bytes.Equal(controller.JSON, firstController.JSON) {
			t.Fatalf("JSON encoding changed on iteration %d", i)
		}
		if !bytes.Equal(button.CBOR, firstButton.CBOR) || !bytes.Equal(controller.CBOR, firstController.CBOR) {
			t.Fatalf("CBOR encoding changed on iteration %d", i)
		}
	}
}

func TestDecodeRoundTripsBothFormats(t *testing.T) {
	button, controller, err := Encode(mustParse(t, "1,1,0,1,1,0,0,1,1"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	for _, format := range []struct {
		name   string
		decode func([]byte) (Message, error)
		pick   func(Event) []byte
	}{
		{"json", Decode, func(e Event) []byte { return e.JSON }},
		{"cbor", DecodeCBOR, func(e Event) []byte { return e.CBOR }},
	} {
		t.Run(format.name, func(t *testing.T) {
			decoded, err := format.decode(format.pick(button))
			if err != nil {
				t.Fatalf("decode button: %v", err)
			}
			if got, ok := decoded.(ButtonInput); !ok || !got.IsPushed {
				t.Errorf("expected pushed ButtonInput, got %#v", decoded)
			}

			decoded, err = format.decode(format.pick(controller))
			if err != nil {
				t.Fatalf("decode controller: %v", err)
			}
			want := ControllerInput{Type: TypeControllerInput, Left: LevelHigh, Right: LevelHigh, Up: LevelLow, Down: LevelNoInput}
			if got, ok := decoded.(ControllerInput); !ok || got != want {
				t.Errorf("expected %+v, got %#v", want, decoded)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		unknown bool
	}{
		{"unknown type", `{"type":"heartbeat"}`, true},
		{"missing type", `{"isPushed":true}`, true},
		{"not json", `button-input`, false},
		{"level out of range", `{"type":"controller-input","left":7,"right":0,"up":0,"down":0}`, false},
		{"wrong field type", `{"type":"button-input","isPushed":"yes"}`, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode([]byte(test.data))
			if err == nil {
				t.Fatalf("expected error for %s", test.data)
			}
			if errors.Is(err, ErrUnknownType) != test.unknown {
				t.Errorf("errors.Is(err, ErrUnknownType) = %v, want %v (err: %v)", !test.unknown, test.unknown, err)
			}
		})
	}
}

func TestDecodeDispatchIsExhaustive(t *testing.T) {
	messages := []Message{
		ButtonInput{Type: TypeButtonInput},
		ControllerInput{Type: TypeControllerInput},
	}
	for _, m := range messages {
		event, err := EncodeMessage(m)
		if err != nil {
			t.Fatalf("EncodeMessage: %v", err)
		}
		decoded, err := Decode(event.JSON)
		if err != nil {
			t.Fatalf("Decode(%s): %v", event.JSON, err)
		}
		switch decoded.(type) {
		case ButtonInput, ControllerInput:
		default:
			t.Errorf("unexpected message type %T", decoded)
		}
		if decoded.MessageType() != m.MessageType() {
			t.Errorf("expected %s, got %s", m.MessageType(), decoded.MessageType())
		}
	}
}
