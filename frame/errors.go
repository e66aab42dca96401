// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"errors"
	"fmt"
)

// Kind names the rule a rejected line violated.
type Kind uint8

const (
	KindFieldCount Kind = iota + 1
	KindIntegerParse
	KindInvalidButtonValue
	KindInvalidControllerLevel
	KindInvalidControllerCombination
)

// String returns the rule name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindFieldCount:
		return "field_count"
	case KindIntegerParse:
		return "integer_parse"
	case KindInvalidButtonValue:
		return "invalid_button_value"
	case KindInvalidControllerLevel:
		return "invalid_controller_level"
	case KindInvalidControllerCombination:
		return "invalid_controller_combination"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Sentinels for errors.Is matching on a *ParseError's kind.
var (
	ErrFieldCount                   = errors.New("wrong field count")
	ErrIntegerParse                 = errors.New("field is not an integer")
	ErrInvalidButtonValue           = errors.New("invalid button value")
	ErrInvalidControllerLevel       = errors.New("invalid controller level")
	ErrInvalidControllerCombination = errors.New("invalid controller combination")
)

var sentinels = map[Kind]error{
	KindFieldCount:                   ErrFieldCount,
	KindIntegerParse:                 ErrIntegerParse,
	KindInvalidButtonValue:           ErrInvalidButtonValue,
	KindInvalidControllerLevel:       ErrInvalidControllerLevel,
	KindInvalidControllerCombination: ErrInvalidControllerCombination,
}

// ParseError describes why a line was rejected. Which fields are
// meaningful depends on Kind:
//
//   - KindFieldCount: Expected, Actual.
//   - KindIntegerParse: Index, Token, Cause.
//   - KindInvalidButtonValue: Index (always 0), Value.
//   - KindInvalidControllerLevel: Index, Value.
//   - KindInvalidControllerCombination: LowIndex, HighIndex, LowValue,
//     HighValue.
type ParseError struct {
	Kind Kind

	Expected int
	Actual   int

	Index int
	Token string
	Value int32

	LowIndex  int
	HighIndex int
	LowValue  int32
	HighValue int32

	Cause error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindFieldCount:
		return fmt.Sprintf("expected %d fields but got %d", e.Expected, e.Actual)
	case KindIntegerParse:
		return fmt.Sprintf("failed to parse field #%d (%q): %v", e.Index, e.Token, e.Cause)
	case KindInvalidButtonValue:
		return fmt.Sprintf("invalid button value: %d (expected 0 or 1)", e.Value)
	case KindInvalidControllerLevel:
		return fmt.Sprintf("invalid controller field #%d value: %d (expected 0 or 1)", e.Index, e.Value)
	case KindInvalidControllerCombination:
		return fmt.Sprintf("invalid controller combination (field #%d=%d, field #%d=%d): high=1 requires low=1",
			e.LowIndex, e.LowValue, e.HighIndex, e.HighValue)
	default:
		return fmt.Sprintf("frame: parse error of unknown kind %d", uint8(e.Kind))
	}
}

// Unwrap returns the strconv error behind a KindIntegerParse error.
func (e *ParseError) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's kind.
func (e *ParseError) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}
