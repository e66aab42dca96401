// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package relayui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ambient-works-jp/water-controller/wire"
)

// Theme defines the color palette for the relay viewer. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Active tab.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Direction level colors (indexed by wire.Level: none, low, high).
	LevelColors [3]lipgloss.Color

	// Button pushed highlight.
	ButtonPushed lipgloss.Color

	// Connection status colors.
	StatusConnected    lipgloss.Color
	StatusConnecting   lipgloss.Color
	StatusDisconnected lipgloss.Color

	// Log level colors.
	LogWarn  lipgloss.Color
	LogError lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
}

// LevelColor returns the color for a direction level. Out-of-range
// values return FaintText.
func (theme Theme) LevelColor(level wire.Level) lipgloss.Color {
	if !level.Valid() {
		return theme.FaintText
	}
	return theme.LevelColors[level]
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	LevelColors: [3]lipgloss.Color{
		lipgloss.Color("240"), // none: dim gray
		lipgloss.Color("220"), // low: amber
		lipgloss.Color("196"), // high: bright red
	},

	ButtonPushed: lipgloss.Color("114"), // green

	StatusConnected:    lipgloss.Color("114"), // green
	StatusConnecting:   lipgloss.Color("220"), // amber
	StatusDisconnected: lipgloss.Color("196"), // red

	LogWarn:  lipgloss.Color("220"),
	LogError: lipgloss.Color("196"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
}
