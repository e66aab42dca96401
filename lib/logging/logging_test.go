// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := ParseLevel(test.name)
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", test.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q): %v", test.name, err)
			}
			if got != test.want {
				t.Errorf("expected %v, got %v", test.want, got)
			}
		})
	}
}

func TestNewJSONFiltersByLevel(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := New(&buffer, Options{Level: "warn", Format: FormatJSON})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("parse error", "raw_line", "1,0,0")

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d: %q", len(lines), buffer.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if record["msg"] != "parse error" || record["raw_line"] != "1,0,0" {
		t.Errorf("unexpected record %v", record)
	}
}

func TestTraceLevelName(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := New(&buffer, Options{Level: "trace", Format: FormatText})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Log(context.Background(), LevelTrace, "line read")
	if !strings.Contains(buffer.String(), "level=TRACE") {
		t.Errorf("expected level=TRACE, got %q", buffer.String())
	}
}

func TestAutoFormatOnNonTerminal(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := New(&buffer, Options{Format: FormatAuto})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello")
	if !strings.HasPrefix(buffer.String(), "{") {
		t.Errorf("expected JSON output for a non-terminal writer, got %q", buffer.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
