// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package relayui

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/ambient-works-jp/water-controller/wire"
)

const (
	timestampLayout = "15:04:05.000"
	cellWidth       = 12

	// chromeHeight is the header, tab bar, and footer.
	chromeHeight = 5

	// defaultBodyHeight is used before the first WindowSizeMsg.
	defaultBodyHeight = 20
)

func (model Model) View() string {
	var builder strings.Builder
	builder.WriteString(model.renderHeader())
	builder.WriteString("\n")
	builder.WriteString(model.renderTabBar())
	builder.WriteString("\n\n")

	switch model.activeTab {
	case TabMonitor:
		builder.WriteString(model.renderMonitor())
	case TabHistory:
		builder.WriteString(model.renderHistory())
	case TabConnection:
		builder.WriteString(model.renderConnection())
	case TabLog:
		builder.WriteString(model.renderLog())
	case TabHelp:
		builder.WriteString(model.renderHelp())
	}

	builder.WriteString("\n\n")
	builder.WriteString(model.help.ShortHelpView(model.keys.ShortHelp()))
	return builder.String()
}

func (model Model) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).Render("Water Controller Viewer")
	status := lipgloss.NewStyle().Foreground(model.statusColor()).Render("● " + model.status.String())
	address := lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(model.url)
	return title + "  " + status + "  " + address
}

func (model Model) statusColor() lipgloss.Color {
	switch model.status {
	case StatusConnected:
		return model.theme.StatusConnected
	case StatusDisconnected:
		return model.theme.StatusDisconnected
	default:
		return model.theme.StatusConnecting
	}
}

func (model Model) renderTabBar() string {
	active := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(model.theme.SelectedForeground).
		Background(model.theme.SelectedBackground)
	inactive := lipgloss.NewStyle().Padding(0, 1).Foreground(model.theme.FaintText)

	var tabs []string
	for tab := TabMonitor; tab < tabCount; tab++ {
		label := fmt.Sprintf("%d %s", int(tab)+1, tab)
		if tab == model.activeTab {
			tabs = append(tabs, active.Render(label))
		} else {
			tabs = append(tabs, inactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (model Model) renderMonitor() string {
	blank := lipgloss.NewStyle().Width(cellWidth + 2).Height(3).Render("")

	top := lipgloss.JoinHorizontal(lipgloss.Top, blank, model.levelCell("Up", model.controller.Up), blank)
	middle := lipgloss.JoinHorizontal(lipgloss.Top,
		model.levelCell("Left", model.controller.Left),
		model.buttonCell(),
		model.levelCell("Right", model.controller.Right))
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, blank, model.levelCell("Down", model.controller.Down), blank)
	pad := lipgloss.JoinVertical(lipgloss.Left, top, middle, bottom)

	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	last := "never"
	if !model.lastReceived.IsZero() {
		last = model.lastReceived.Format(timestampLayout)
	}
	stats := faint.Render(fmt.Sprintf("Messages: %d (button %d, controller %d)   Rate: %d msg/s   Last: %s",
		model.buttonEvents+model.controllerEvents, model.buttonEvents, model.controllerEvents, model.Rate(), last))

	return pad + "\n\n" + stats
}

func (model Model) levelCell(name string, level wire.Level) string {
	color := model.theme.LevelColor(level)
	return lipgloss.NewStyle().
		Width(cellWidth).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(color).
		Render(name + " " + levelName(level))
}

func (model Model) buttonCell() string {
	style := lipgloss.NewStyle().
		Width(cellWidth).
		Align(lipgloss.Center).
		Border(lipgloss.DoubleBorder()).
		BorderForeground(model.theme.BorderColor).
		Foreground(model.theme.FaintText)
	label := "released"
	if model.button.IsPushed {
		label = "PUSHED"
		style = style.Bold(true).
			BorderForeground(model.theme.ButtonPushed).
			Foreground(model.theme.ButtonPushed)
	}
	return style.Render(label)
}

func levelName(level wire.Level) string {
	switch level {
	case wire.LevelNoInput:
		return "none"
	case wire.LevelLow:
		return "low"
	case wire.LevelHigh:
		return "high"
	default:
		return fmt.Sprintf("?%d", int32(level))
	}
}

func (model Model) bodyHeight() int {
	if model.height <= 0 {
		return defaultBodyHeight
	}
	return max(model.height-chromeHeight-2, 1)
}

// window returns the [start, end) range of a list of length total that
// is visible offset entries back from the tail.
func (model Model) window(total, offset int) (int, int) {
	end := total - offset
	start := max(end-model.bodyHeight(), 0)
	return start, end
}

// fit truncates a styled line to the terminal width.
func (model Model) fit(line string) string {
	if model.width <= 0 {
		return line
	}
	return ansi.Truncate(line, model.width, "…")
}

func (model Model) renderHistory() string {
	if len(model.history) == 0 {
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("No messages received yet.")
	}
	timestamp := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	start, end := model.window(len(model.history), model.historyOffset)
	lines := make([]string, 0, end-start)
	for _, entry := range model.history[start:end] {
		line := timestamp.Render("["+entry.At.Format(timestampLayout)+"]") + " " + describe(entry.Message)
		lines = append(lines, model.fit(line))
	}
	return strings.Join(lines, "\n")
}

// describe renders a message on one line.
func describe(message wire.Message) string {
	switch message := message.(type) {
	case wire.ButtonInput:
		return fmt.Sprintf("%-16s isPushed=%t", message.Type, message.IsPushed)
	case wire.ControllerInput:
		return fmt.Sprintf("%-16s left=%s right=%s up=%s down=%s", message.Type,
			levelName(message.Left), levelName(message.Right), levelName(message.Up), levelName(message.Down))
	default:
		return fmt.Sprintf("%v", message)
	}
}

func (model Model) renderConnection() string {
	label := lipgloss.NewStyle().Width(14).Foreground(model.theme.FaintText)
	row := func(name, value string) string {
		return label.Render(name) + value
	}

	protocol, host, port, path := "-", "-", "-", "-"
	if parsed, err := url.Parse(model.url); err == nil {
		protocol = parsed.Scheme
		host = parsed.Hostname()
		port = parsed.Port()
		path = parsed.Path
	}
	subprotocol := model.subprotocol
	if subprotocol == "" {
		subprotocol = "-"
	}

	rows := []string{
		row("URL", model.url),
		row("Protocol", protocol),
		row("Host", host),
		row("Port", port),
		row("Path", path),
		row("Subprotocol", subprotocol),
		row("Status", lipgloss.NewStyle().Foreground(model.statusColor()).Render(model.status.String())),
	}
	if model.status == StatusConnected {
		uptime := model.clock.Now().Sub(model.connectedAt).Truncate(time.Second)
		rows = append(rows, row("Connected for", uptime.String()))
	}
	rows = append(rows, row("Disconnects", fmt.Sprintf("%d", model.disconnects)))
	if model.lastError != "" {
		rows = append(rows, row("Last error", model.lastError))
	}
	if model.status == StatusDisconnected {
		rows = append(rows, row("Retry in", model.retryIn.String()))
	}
	return strings.Join(rows, "\n")
}

func (model Model) renderLog() string {
	if len(model.logs) == 0 {
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("No log records.")
	}
	timestamp := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	start, end := model.window(len(model.logs), model.logOffset)
	lines := make([]string, 0, end-start)
	for _, entry := range model.logs[start:end] {
		style := lipgloss.NewStyle().Foreground(model.theme.NormalText)
		switch {
		case entry.Level >= slog.LevelError:
			style = style.Foreground(model.theme.LogError)
		case entry.Level >= slog.LevelWarn:
			style = style.Foreground(model.theme.LogWarn)
		}
		level := fmt.Sprintf("%-5s", entry.Level.String())
		line := timestamp.Render("["+entry.At.Format(timestampLayout)+"]") + " " + style.Render(level+" "+entry.Summary)
		lines = append(lines, model.fit(line))
	}
	return strings.Join(lines, "\n")
}

func (model Model) renderHelp() string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	legend := []string{
		"Direction levels:",
		"  " + lipgloss.NewStyle().Foreground(model.theme.LevelColor(wire.LevelNoInput)).Render("none") + "  no input",
		"  " + lipgloss.NewStyle().Foreground(model.theme.LevelColor(wire.LevelLow)).Render("low ") + "  first threshold",
		"  " + lipgloss.NewStyle().Foreground(model.theme.LevelColor(wire.LevelHigh)).Render("high") + "  second threshold",
	}
	fullHelp := model.help
	fullHelp.ShowAll = true
	return fullHelp.FullHelpView(model.keys.FullHelp()) + "\n\n" + faint.Render(strings.Join(legend, "\n"))
}
