// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package relayui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ambient-works-jp/water-controller/lib/clock"
	"github.com/ambient-works-jp/water-controller/wire"
)

// Tab identifies one of the viewer's pages.
type Tab int

const (
	TabMonitor Tab = iota
	TabHistory
	TabConnection
	TabLog
	TabHelp
	tabCount
)

func (tab Tab) String() string {
	switch tab {
	case TabMonitor:
		return "Monitor"
	case TabHistory:
		return "History"
	case TabConnection:
		return "Connection"
	case TabLog:
		return "Log"
	case TabHelp:
		return "Help"
	default:
		return fmt.Sprintf("Tab(%d)", int(tab))
	}
}

// ConnectionStatus is the viewer's view of the stream.
type ConnectionStatus int

const (
	StatusConnecting ConnectionStatus = iota
	StatusConnected
	StatusDisconnected
)

func (status ConnectionStatus) String() string {
	switch status {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("ConnectionStatus(%d)", int(status))
	}
}

const (
	historyLimit = 200
	logLimit     = 200

	// rateWindow is the span the message rate is averaged over.
	rateWindow   = time.Second
	tickInterval = time.Second
)

type historyEntry struct {
	At      time.Time
	Message wire.Message
}

type logEntry struct {
	At      time.Time
	Level   slog.Level
	Summary string
}

// tickMsg refreshes time-dependent figures (rate, uptime) while no
// messages arrive.
type tickMsg time.Time

// Model is the bubbletea model for the relay viewer.
type Model struct {
	url   string
	theme Theme
	keys  KeyMap
	help  help.Model
	clock clock.Clock

	activeTab Tab
	width     int
	height    int

	status      ConnectionStatus
	subprotocol string
	lastError   string
	retryIn     time.Duration
	connectedAt time.Time
	disconnects int

	button           wire.ButtonInput
	controller       wire.ControllerInput
	buttonEvents     int
	controllerEvents int
	lastReceived     time.Time
	arrivals         []time.Time

	// Offsets count entries back from the newest; 0 follows the tail.
	history       []historyEntry
	historyOffset int
	logs          []logEntry
	logOffset     int
}

// NewModel returns a viewer for the relay at url.
func NewModel(url string, theme Theme, clk clock.Clock) Model {
	if clk == nil {
		clk = clock.Real()
	}
	helpModel := help.New()
	return Model{
		url:        url,
		theme:      theme,
		keys:       DefaultKeyMap,
		help:       helpModel,
		clock:      clk,
		controller: wire.ControllerInput{Type: wire.TypeControllerInput},
		button:     wire.ButtonInput{Type: wire.TypeButtonInput},
	}
}

func (model Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(now time.Time) tea.Msg {
		return tickMsg(now)
	})
}

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.help.Width = message.Width
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)

	case ConnectedMsg:
		model.status = StatusConnected
		model.subprotocol = message.Subprotocol
		model.lastError = ""
		model.retryIn = 0
		model.connectedAt = model.clock.Now()
		model.appendLog(slog.LevelInfo, fmt.Sprintf("connected to %s (%s)", message.URL, message.Subprotocol))
		return model, nil

	case DisconnectedMsg:
		if model.status == StatusConnected {
			model.disconnects++
		}
		model.status = StatusDisconnected
		model.retryIn = message.RetryIn
		model.lastError = ""
		if message.Err != nil {
			model.lastError = message.Err.Error()
		}
		model.appendLog(slog.LevelWarn, fmt.Sprintf("disconnected, retrying in %s", message.RetryIn))
		return model, nil

	case EventMsg:
		model.applyEvent(message)
		return model, nil

	case logRecordMsg:
		model.appendLog(message.Level, message.Summary)
		return model, nil

	case tickMsg:
		model.pruneArrivals()
		return model, tick()
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit
	case key.Matches(message, model.keys.NextTab):
		model.activeTab = (model.activeTab + 1) % tabCount
	case key.Matches(message, model.keys.PreviousTab):
		model.activeTab = (model.activeTab + tabCount - 1) % tabCount
	case key.Matches(message, model.keys.TabMonitor):
		model.activeTab = TabMonitor
	case key.Matches(message, model.keys.TabHistory):
		model.activeTab = TabHistory
	case key.Matches(message, model.keys.TabConnection):
		model.activeTab = TabConnection
	case key.Matches(message, model.keys.TabLog):
		model.activeTab = TabLog
	case key.Matches(message, model.keys.TabHelp):
		model.activeTab = TabHelp
	case key.Matches(message, model.keys.Up):
		model.scroll(1)
	case key.Matches(message, model.keys.Down):
		model.scroll(-1)
	case key.Matches(message, model.keys.Bottom):
		model.scroll(-max(len(model.history), len(model.logs)))
	case key.Matches(message, model.keys.Clear):
		switch model.activeTab {
		case TabHistory:
			model.history = nil
			model.historyOffset = 0
		case TabLog:
			model.logs = nil
			model.logOffset = 0
		}
	}
	return model, nil
}

// scroll moves the active list delta entries toward older entries.
func (model *Model) scroll(delta int) {
	switch model.activeTab {
	case TabHistory:
		model.historyOffset = clamp(model.historyOffset+delta, 0, max(len(model.history)-1, 0))
	case TabLog:
		model.logOffset = clamp(model.logOffset+delta, 0, max(len(model.logs)-1, 0))
	}
}

func (model *Model) applyEvent(event EventMsg) {
	switch message := event.Message.(type) {
	case wire.ButtonInput:
		model.button = message
		model.buttonEvents++
	case wire.ControllerInput:
		model.controller = message
		model.controllerEvents++
	default:
		return
	}

	model.lastReceived = event.ReceivedAt
	model.arrivals = append(model.arrivals, event.ReceivedAt)
	model.pruneArrivals()

	model.history = append(model.history, historyEntry{At: event.ReceivedAt, Message: event.Message})
	if len(model.history) > historyLimit {
		model.history = model.history[len(model.history)-historyLimit:]
	}
	if model.historyOffset > 0 {
		model.historyOffset = min(model.historyOffset+1, len(model.history)-1)
	}
}

func (model *Model) appendLog(level slog.Level, summary string) {
	model.logs = append(model.logs, logEntry{At: model.clock.Now(), Level: level, Summary: summary})
	if len(model.logs) > logLimit {
		model.logs = model.logs[len(model.logs)-logLimit:]
	}
	if model.logOffset > 0 {
		model.logOffset = min(model.logOffset+1, len(model.logs)-1)
	}
}

// pruneArrivals drops arrival times older than rateWindow.
func (model *Model) pruneArrivals() {
	cutoff := model.clock.Now().Add(-rateWindow)
	keep := 0
	for keep < len(model.arrivals) && !model.arrivals[keep].After(cutoff) {
		keep++
	}
	model.arrivals = model.arrivals[keep:]
}

// Rate returns messages received in the last second.
func (model Model) Rate() int {
	cutoff := model.clock.Now().Add(-rateWindow)
	count := 0
	for _, at := range model.arrivals {
		if at.After(cutoff) {
			count++
		}
	}
	return count
}

// ActiveTab returns the tab being displayed.
func (model Model) ActiveTab() Tab { return model.activeTab }

// Status returns the connection status.
func (model Model) Status() ConnectionStatus { return model.status }

func clamp(value, low, high int) int {
	return min(max(value, low), high)
}
