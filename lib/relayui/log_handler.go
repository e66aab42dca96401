// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package relayui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages into a running bubbletea program.
// *tea.Program satisfies it.
type Sender interface {
	Send(message tea.Msg)
}

// logRecordMsg delivers a slog record to the Log tab.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// TUILogHandler is a slog.Handler that routes log records into the
// viewer's Log tab. While the viewer owns the terminal, writing log
// lines to stderr would corrupt the display.
//
// Call SetSender once the tea.Program exists. Records arriving before
// that are dropped. Handlers derived via WithAttrs/WithGroup share the
// same sender, so a single SetSender call reaches all of them.
type TUILogHandler struct {
	level  slog.Level
	sender *atomic.Pointer[Sender]
	attrs  []slog.Attr
	groups []string
}

// NewTUILogHandler creates a handler that delivers records at or above
// level.
func NewTUILogHandler(level slog.Level) *TUILogHandler {
	return &TUILogHandler{
		level:  level,
		sender: &atomic.Pointer[Sender]{},
	}
}

// SetSender sets the program that receives log records. Safe to call
// from any goroutine.
func (handler *TUILogHandler) SetSender(sender Sender) {
	handler.sender.Store(&sender)
}

func (handler *TUILogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record as "message (key=value, ...)" and sends it.
func (handler *TUILogHandler) Handle(_ context.Context, record slog.Record) error {
	sender := handler.sender.Load()
	if sender == nil {
		return nil
	}

	prefix := ""
	if len(handler.groups) > 0 {
		prefix = strings.Join(handler.groups, ".") + "."
	}

	var parts []string
	for _, attr := range handler.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s%s=%s", prefix, attr.Key, attr.Value))
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	(*sender).Send(logRecordMsg{Summary: summary, Level: record.Level})
	return nil
}

func (handler *TUILogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := ""
	if len(handler.groups) > 0 {
		prefix = strings.Join(handler.groups, ".") + "."
	}
	combined := sliceClone(handler.attrs)
	for _, attr := range attrs {
		combined = append(combined, slog.Attr{Key: prefix + attr.Key, Value: attr.Value})
	}
	return &TUILogHandler{
		level:  handler.level,
		sender: handler.sender,
		attrs:  combined,
		groups: sliceClone(handler.groups),
	}
}

func (handler *TUILogHandler) WithGroup(name string) slog.Handler {
	return &TUILogHandler{
		level:  handler.level,
		sender: handler.sender,
		attrs:  sliceClone(handler.attrs),
		groups: append(sliceClone(handler.groups), name),
	}
}

func sliceClone[T any](source []T) []T {
	if source == nil {
		return nil
	}
	result := make([]T, len(source))
	copy(result, source)
	return result
}
