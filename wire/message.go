// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"

	"github.com/ambient-works-jp/water-controller/frame"
)

// Message type discriminators.
const (
	TypeButtonInput     = "button-input"
	TypeControllerInput = "controller-input"
)

// Level is a direction reading on the wire.
type Level int32

const (
	LevelNoInput Level = 0
	LevelLow     Level = 1
	LevelHigh    Level = 2

	// LevelMiddle is reserved for a sensor with an intermediate
	// threshold. Schema version 1 gives it the same value as LevelHigh
	// and the parser never produces it.
	LevelMiddle Level = 2
)

func (l Level) String() string {
	switch l {
	case LevelNoInput:
		return "none"
	case LevelLow:
		return "low"
	case LevelHigh:
		return "high"
	default:
		return fmt.Sprintf("Level(%d)", int32(l))
	}
}

// Valid reports whether l is a value this schema defines.
func (l Level) Valid() bool {
	return l >= LevelNoInput && l <= LevelHigh
}

// Message is one decoded wire message. The concrete type is either
// ButtonInput or ControllerInput.
type Message interface {
	MessageType() string
	sealed()
}

// ButtonInput reports the push button.
type ButtonInput struct {
	Type     string `json:"type"     cbor:"type"`
	IsPushed bool   `json:"isPushed" cbor:"isPushed"`
}

// ControllerInput reports the four direction sensors.
type ControllerInput struct {
	Type  string `json:"type"  cbor:"type"`
	Left  Level  `json:"left"  cbor:"left"`
	Right Level  `json:"right" cbor:"right"`
	Up    Level  `json:"up"    cbor:"up"`
	Down  Level  `json:"down"  cbor:"down"`
}

func (ButtonInput) MessageType() string     { return TypeButtonInput }
func (ControllerInput) MessageType() string { return TypeControllerInput }
func (ButtonInput) sealed()                 {}
func (ControllerInput) sealed()             {}

// FromFrame maps a parsed sample to its two wire messages.
func FromFrame(f frame.Frame) (ButtonInput, ControllerInput) {
	return ButtonInput{
			Type:     TypeButtonInput,
			IsPushed: f.Button.IsPushed,
		}, ControllerInput{
			Type:  TypeControllerInput,
			Left:  levelOf(f.Controller.Left),
			Right: levelOf(f.Controller.Right),
			Up:    levelOf(f.Controller.Up),
			Down:  levelOf(f.Controller.Down),
		}
}

func levelOf(d frame.DirectionLevel) Level {
	switch d.Kind {
	case frame.Low:
		return LevelLow
	case frame.High:
		return LevelHigh
	default:
		return LevelNoInput
	}
}
