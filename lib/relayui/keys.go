// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package relayui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the relay viewer.
type KeyMap struct {
	NextTab     key.Binding
	PreviousTab key.Binding

	TabMonitor    key.Binding
	TabHistory    key.Binding
	TabConnection key.Binding
	TabLog        key.Binding
	TabHelp       key.Binding

	// Scrolling in the History and Log tabs.
	Up     key.Binding
	Down   key.Binding
	Bottom key.Binding

	Clear key.Binding
	Quit  key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	NextTab: key.NewBinding(
		key.WithKeys("tab", "right", "l"),
		key.WithHelp("Tab/→", "next tab"),
	),
	PreviousTab: key.NewBinding(
		key.WithKeys("shift+tab", "left", "h"),
		key.WithHelp("S-Tab/←", "prev tab"),
	),
	TabMonitor: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "monitor"),
	),
	TabHistory: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "history"),
	),
	TabConnection: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "connection"),
	),
	TabLog: key.NewBinding(
		key.WithKeys("4"),
		key.WithHelp("4", "log"),
	),
	TabHelp: key.NewBinding(
		key.WithKeys("5", "?"),
		key.WithHelp("5/?", "help"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "older"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "newer"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "latest"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/Esc", "quit"),
	),
}

// ShortHelp implements help.KeyMap for the footer line.
func (keys KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.NextTab, keys.TabHelp, keys.Quit}
}

// FullHelp implements help.KeyMap for the Help tab.
func (keys KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{keys.TabMonitor, keys.TabHistory, keys.TabConnection, keys.TabLog, keys.TabHelp},
		{keys.NextTab, keys.PreviousTab},
		{keys.Up, keys.Down, keys.Bottom, keys.Clear},
		{keys.Quit},
	}
}
