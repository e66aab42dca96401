// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"strconv"
	"strings"
)

// pair locates one direction's low and high fields.
type pair struct {
	low, high int
	level     func(*ControllerState) *DirectionLevel
}

// pairs in line order: up, right, down, left.
var pairs = [4]pair{
	{1, 2, func(c *ControllerState) *DirectionLevel { return &c.Up }},
	{3, 4, func(c *ControllerState) *DirectionLevel { return &c.Right }},
	{5, 6, func(c *ControllerState) *DirectionLevel { return &c.Down }},
	{7, 8, func(c *ControllerState) *DirectionLevel { return &c.Left }},
}

// Parse validates one line. Surrounding whitespace is ignored, both on
// the line and on each field. Fields are checked in index order and the
// first violation is returned.
func Parse(line string) (Frame, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Frame{}, &ParseError{Kind: KindFieldCount, Expected: FieldCount, Actual: 0}
	}

	tokens := strings.Split(trimmed, ",")
	if len(tokens) != FieldCount {
		return Frame{}, &ParseError{Kind: KindFieldCount, Expected: FieldCount, Actual: len(tokens)}
	}

	var values [FieldCount]int32
	var result Frame
	for index, token := range tokens {
		token = strings.TrimSpace(token)
		parsed, err := strconv.ParseInt(token, 10, 32)
		if err != nil {
			return Frame{}, &ParseError{Kind: KindIntegerParse, Index: index, Token: token, Cause: err}
		}
		value := int32(parsed)
		values[index] = value

		if index == 0 {
			switch value {
			case 0:
			case 1:
				result.Button.IsPushed = true
			default:
				return Frame{}, &ParseError{Kind: KindInvalidButtonValue, Index: 0, Value: value}
			}
			continue
		}

		if value != 0 && value != 1 {
			return Frame{}, &ParseError{Kind: KindInvalidControllerLevel, Index: index, Value: value}
		}

		// Odd indices are low fields; the pair resolves at its high field.
		if index%2 == 1 {
			continue
		}
		p := pairs[index/2-1]
		level, err := resolve(values[p.low], values[p.high], p.low, p.high)
		if err != nil {
			return Frame{}, err
		}
		*p.level(&result.Controller) = level
	}

	return result, nil
}

func resolve(low, high int32, lowIndex, highIndex int) (DirectionLevel, error) {
	if high == 1 && low == 0 {
		return DirectionLevel{}, &ParseError{
			Kind:      KindInvalidControllerCombination,
			LowIndex:  lowIndex,
			HighIndex: highIndex,
			LowValue:  low,
			HighValue: high,
		}
	}
	switch {
	case high > 0:
		return DirectionLevel{Kind: High, Raw: high}, nil
	case low > 0:
		return DirectionLevel{Kind: Low, Raw: low}, nil
	default:
		return DirectionLevel{Kind: NoInput}, nil
	}
}
