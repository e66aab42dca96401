// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import "fmt"

// FieldCount is the number of comma-separated fields in a valid line.
const FieldCount = 9

// Frame is one validated controller sample.
type Frame struct {
	Button     ButtonState
	Controller ControllerState
}

// ButtonState is the push button.
type ButtonState struct {
	IsPushed bool
}

// ControllerState holds the four direction sensors.
type ControllerState struct {
	Left  DirectionLevel
	Right DirectionLevel
	Up    DirectionLevel
	Down  DirectionLevel
}

// LevelKind classifies a direction sensor reading.
type LevelKind uint8

const (
	// NoInput means neither threshold was crossed.
	NoInput LevelKind = iota
	// Low means only the low threshold was crossed.
	Low
	// High means the high threshold was crossed.
	High
)

func (k LevelKind) String() string {
	switch k {
	case NoInput:
		return "no-input"
	case Low:
		return "low"
	case High:
		return "high"
	default:
		return fmt.Sprintf("LevelKind(%d)", uint8(k))
	}
}

// DirectionLevel is a resolved direction reading. Raw keeps the field
// value the level was resolved from, for diagnostics; it is 0 for
// NoInput.
type DirectionLevel struct {
	Kind LevelKind
	Raw  int32
}

func (l DirectionLevel) String() string {
	if l.Kind == NoInput {
		return l.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", l.Kind, l.Raw)
}

func (f Frame) String() string {
	return fmt.Sprintf("button=%t up=%s right=%s down=%s left=%s",
		f.Button.IsPushed,
		f.Controller.Up, f.Controller.Right, f.Controller.Down, f.Controller.Left)
}
