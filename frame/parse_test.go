// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
)

func noInput() DirectionLevel { return DirectionLevel{Kind: NoInput} }
func low() DirectionLevel     { return DirectionLevel{Kind: Low, Raw: 1} }
func high() DirectionLevel    { return DirectionLevel{Kind: High, Raw: 1} }

func TestParseValid(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Frame
	}{
		{
			name: "all idle",
			line: "0,0,0,0,0,0,0,0,0",
			want: Frame{Controller: ControllerState{Left: noInput(), Right: noInput(), Up: noInput(), Down: noInput()}},
		},
		{
			name: "mixed levels",
			line: "1,1,0,1,1,1,0,1,1",
			want: Frame{
				Button:     ButtonState{IsPushed: true},
				Controller: ControllerState{Up: low(), Right: high(), Down: low(), Left: high()},
			},
		},
		{
			name: "surrounding whitespace and carriage return",
			line: "  0, 1,1 ,0,0,0,0,0,0\r\n",
			want: Frame{Controller: ControllerState{Up: high(), Right: noInput(), Down: noInput(), Left: noInput()}},
		},
		{
			name: "explicit sign",
			line: "+1,0,0,0,0,0,0,+1,0",
			want: Frame{
				Button:     ButtonState{IsPushed: true},
				Controller: ControllerState{Up: noInput(), Right: noInput(), Down: noInput(), Left: low()},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Parse(test.line)
			if err != nil {
				t.Fatalf("Parse(%q): %v", test.line, err)
			}
			if got != test.want {
				t.Errorf("expected %s, got %s", test.want, got)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		want     ParseError
		sentinel error
	}{
		{
			name:     "empty",
			line:     "   ",
			want:     ParseError{Kind: KindFieldCount, Expected: 9, Actual: 0},
			sentinel: ErrFieldCount,
		},
		{
			name:     "too few fields",
			line:     "0,0,0",
			want:     ParseError{Kind: KindFieldCount, Expected: 9, Actual: 3},
			sentinel: ErrFieldCount,
		},
		{
			name:     "too many fields",
			line:     "0,0,0,0,0,0,0,0,0,0",
			want:     ParseError{Kind: KindFieldCount, Expected: 9, Actual: 10},
			sentinel: ErrFieldCount,
		},
		{
			name:     "trailing comma counts as a field",
			line:     "0,0,0,0,0,0,0,0,",
			want:     ParseError{Kind: KindIntegerParse, Index: 8, Token: ""},
			sentinel: ErrIntegerParse,
		},
		{
			name:     "button out of range",
			line:     "2,0,0,0,0,0,0,0,0",
			want:     ParseError{Kind: KindInvalidButtonValue, Value: 2},
			sentinel: ErrInvalidButtonValue,
		},
		{
			name:     "negative button",
			line:     "-1,0,0,0,0,0,0,0,0",
			want:     ParseError{Kind: KindInvalidButtonValue, Value: -1},
			sentinel: ErrInvalidButtonValue,
		},
		{
			name:     "controller level out of range",
			line:     "0,0,0,0,0,0,3,0,0",
			want:     ParseError{Kind: KindInvalidControllerLevel, Index: 6, Value: 3},
			sentinel: ErrInvalidControllerLevel,
		},
		{
			name:     "high without low",
			line:     "0,0,0,0,1,0,0,0,0",
			want:     ParseError{Kind: KindInvalidControllerCombination, LowIndex: 3, HighIndex: 4, LowValue: 0, HighValue: 1},
			sentinel: ErrInvalidControllerCombination,
		},
		{
			name:     "lowest offending index wins",
			line:     "0,0,1,0,0,0,0,0,5",
			want:     ParseError{Kind: KindInvalidControllerCombination, LowIndex: 1, HighIndex: 2, LowValue: 0, HighValue: 1},
			sentinel: ErrInvalidControllerCombination,
		},
		{
			name:     "button checked before controller fields",
			line:     "7,0,9,0,0,0,0,0,0",
			want:     ParseError{Kind: KindInvalidButtonValue, Value: 7},
			sentinel: ErrInvalidButtonValue,
		},
		{
			name:     "bad button reported ahead of a later bad level",
			line:     "2,5,0,0,0,0,0,0,0",
			want:     ParseError{Kind: KindInvalidButtonValue, Value: 2},
			sentinel: ErrInvalidButtonValue,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.line)
			if err == nil {
				t.Fatalf("expected error for %q", test.line)
			}
			var parseError *ParseError
			if !errors.As(err, &parseError) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			got := *parseError
			got.Cause = nil
			if got != test.want {
				t.Errorf("expected %+v, got %+v", test.want, got)
			}
			if !errors.Is(err, test.sentinel) {
				t.Errorf("expected errors.Is(err, %v)", test.sentinel)
			}
		})
	}
}

func TestParseIntegerErrorUnwraps(t *testing.T) {
	_, err := Parse("0,0,x,0,0,0,0,0,0")
	var parseError *ParseError
	if !errors.As(err, &parseError) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseError.Kind != KindIntegerParse || parseError.Index != 2 || parseError.Token != "x" {
		t.Errorf("unexpected error %+v", parseError)
	}
	if !errors.Is(err, strconv.ErrSyntax) {
		t.Errorf("expected cause strconv.ErrSyntax, got %v", parseError.Cause)
	}

	// Out of int32 range is a parse failure, not a range check.
	_, err = Parse("0,0,0,0,0,0,0,0,4294967296")
	if !errors.Is(err, strconv.ErrRange) || !errors.Is(err, ErrIntegerParse) {
		t.Errorf("expected integer parse range error, got %v", err)
	}
}

func TestParseErrorMessages(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"0,0,0", "expected 9 fields but got 3"},
		{"2,0,0,0,0,0,0,0,0", "invalid button value: 2 (expected 0 or 1)"},
		{"0,0,0,0,0,0,3,0,0", "invalid controller field #6 value: 3 (expected 0 or 1)"},
		{"0,0,0,0,1,0,0,0,0", "invalid controller combination (field #3=0, field #4=1): high=1 requires low=1"},
	}
	for _, test := range tests {
		_, err := Parse(test.line)
		if err == nil || err.Error() != test.want {
			t.Errorf("Parse(%q): expected %q, got %v", test.line, test.want, err)
		}
	}
}

// TestParseExhaustive walks every line of 0/1 fields and checks the
// resolution rule against an independent statement of it.
func TestParseExhaustive(t *testing.T) {
	for bits := 0; bits < 1<<FieldCount; bits++ {
		fields := make([]string, FieldCount)
		values := make([]int, FieldCount)
		for i := range fields {
			values[i] = (bits >> i) & 1
			fields[i] = strconv.Itoa(values[i])
		}
		line := strings.Join(fields, ",")

		invalidPair := -1
		for p := 0; p < 4; p++ {
			if values[2*p+2] == 1 && values[2*p+1] == 0 {
				invalidPair = p
				break
			}
		}

		got, err := Parse(line)
		if invalidPair >= 0 {
			var parseError *ParseError
			if !errors.As(err, &parseError) || parseError.Kind != KindInvalidControllerCombination {
				t.Fatalf("Parse(%q): expected combination error, got %v", line, err)
			}
			if parseError.LowIndex != 2*invalidPair+1 || parseError.HighIndex != 2*invalidPair+2 {
				t.Fatalf("Parse(%q): expected pair %d, got indices %d,%d",
					line, invalidPair, parseError.LowIndex, parseError.HighIndex)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}

		if got.Button.IsPushed != (values[0] == 1) {
			t.Errorf("Parse(%q): wrong button %t", line, got.Button.IsPushed)
		}
		levels := []DirectionLevel{got.Controller.Up, got.Controller.Right, got.Controller.Down, got.Controller.Left}
		for p, level := range levels {
			want := NoInput
			if values[2*p+2] == 1 {
				want = High
			} else if values[2*p+1] == 1 {
				want = Low
			}
			if level.Kind != want {
				t.Errorf("Parse(%q): pair %d expected %s, got %s", line, p, want, level.Kind)
			}
		}
	}
}

func TestParseFieldCountReportsActual(t *testing.T) {
	for count := 1; count <= 20; count++ {
		if count == FieldCount {
			continue
		}
		line := strings.TrimSuffix(strings.Repeat("0,", count), ",")
		_, err := Parse(line)
		var parseError *ParseError
		if !errors.As(err, &parseError) || parseError.Kind != KindFieldCount {
			t.Fatalf("Parse(%q): expected field count error, got %v", line, err)
		}
		if parseError.Actual != count {
			t.Errorf("Parse(%q): expected actual %d, got %d", line, count, parseError.Actual)
		}
	}
}

func TestParseButtonRejectsOtherIntegers(t *testing.T) {
	for _, value := range []int{-100, -2, -1, 2, 3, 42, 1 << 20} {
		line := fmt.Sprintf("%d,0,0,0,0,0,0,0,0", value)
		_, err := Parse(line)
		var parseError *ParseError
		if !errors.As(err, &parseError) || parseError.Kind != KindInvalidButtonValue {
			t.Fatalf("Parse(%q): expected button error, got %v", line, err)
		}
		if int(parseError.Value) != value {
			t.Errorf("Parse(%q): expected value %d, got %d", line, value, parseError.Value)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindInvalidControllerCombination.String() != "invalid_controller_combination" {
		t.Errorf("unexpected rule name %q", KindInvalidControllerCombination)
	}
}
