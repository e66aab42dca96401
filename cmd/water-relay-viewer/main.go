// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// water-relay-viewer is a terminal dashboard for a running relay. It
// shows the live button and direction state, recent messages, and the
// connection to the relay, reconnecting automatically when the relay
// restarts.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/ambient-works-jp/water-controller/client"
	"github.com/ambient-works-jp/water-controller/lib/clock"
	"github.com/ambient-works-jp/water-controller/lib/logging"
	"github.com/ambient-works-jp/water-controller/lib/process"
	"github.com/ambient-works-jp/water-controller/lib/relayui"
	"github.com/ambient-works-jp/water-controller/lib/version"
)

const defaultURL = "ws://127.0.0.1:8080/ws"

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		url      string
		binary   bool
		logLevel string
		noColor  bool
	)

	flagSet := pflag.NewFlagSet("water-relay-viewer", pflag.ContinueOnError)
	flagSet.StringVarP(&url, "url", "u", defaultURL, "relay WebSocket URL")
	flagSet.BoolVar(&binary, "cbor", false, "request CBOR binary frames instead of JSON")
	flagSet.StringVarP(&logLevel, "log-level", "l", "info", "minimum level shown in the Log tab")
	flagSet.BoolVar(&noColor, "no-color", false, "disable colors (also honored: NO_COLOR)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("water-relay-viewer")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return process.ConfigError(err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return process.ConfigError(fmt.Errorf("unexpected argument: %s", args[0]))
	}

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return process.ConfigError(err)
	}

	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	// Log records go to the Log tab; stderr belongs to the alt screen.
	tuiHandler := relayui.NewTUILogHandler(level)
	logger := slog.New(tuiHandler)

	clk := clock.Real()
	model := relayui.NewModel(url, relayui.DefaultTheme, clk)
	program := tea.NewProgram(model, tea.WithAltScreen())
	tuiHandler.SetSender(program)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &client.Stream{
		URL:     url,
		Binary:  binary,
		Handler: relayui.NewStreamBridge(program),
		Clock:   clk,
		Logger:  logger.With("component", "stream"),
	}
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		_ = stream.Run(ctx)
	}()

	_, err = program.Run()
	cancel()
	<-streamDone
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `water-relay-viewer — terminal dashboard for a running relay.

Tabs: 1 Monitor, 2 History, 3 Connection, 4 Log, 5 Help.
Tab/Shift+Tab or ←/→ cycle tabs; q or Esc quits.

Usage:
  water-relay-viewer [flags]

Examples:
  # Watch the local relay
  water-relay-viewer

  # Watch a relay on another host
  water-relay-viewer --url ws://192.168.1.20:8080/ws

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
