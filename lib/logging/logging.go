// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the *slog.Logger each binary constructs in main
// and passes down. Nothing here touches slog's default logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// LevelTrace sits below debug and carries per-line detail (every raw
// serial line, every published message).
const LevelTrace = slog.LevelDebug - 4

// Output formats accepted by [New].
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatAuto = "auto"
)

// Options selects the level and handler.
type Options struct {
	Level  string
	Format string
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want trace, debug, info, warn, or error)", name)
	}
}

// New returns a logger writing to w. Format "auto" picks text when w is
// a terminal and JSON otherwise.
func New(w io.Writer, options Options) (*slog.Logger, error) {
	level, err := ParseLevel(options.Level)
	if err != nil {
		return nil, err
	}

	handlerOptions := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelName,
	}

	format := options.Format
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatText
		}
	}

	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, handlerOptions)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, handlerOptions)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want json, text, or auto)", options.Format)
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// replaceLevelName prints LevelTrace as "TRACE" instead of "DEBUG-4".
func replaceLevelName(groups []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey || len(groups) != 0 {
		return attr
	}
	if level, ok := attr.Value.Any().(slog.Level); ok && level == LevelTrace {
		attr.Value = slog.StringValue("TRACE")
	}
	return attr
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
