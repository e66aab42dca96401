// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// water-relay-client subscribes to a running relay and logs every
// message it receives. It reconnects automatically, so it can be left
// running across relay restarts while debugging controller firmware.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ambient-works-jp/water-controller/client"
	"github.com/ambient-works-jp/water-controller/lib/logging"
	"github.com/ambient-works-jp/water-controller/lib/process"
	"github.com/ambient-works-jp/water-controller/lib/version"
	"github.com/ambient-works-jp/water-controller/wire"
)

const defaultURL = "ws://127.0.0.1:8080/ws"

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		url       string
		binary    bool
		logLevel  string
		logFormat string
	)

	flagSet := pflag.NewFlagSet("water-relay-client", pflag.ContinueOnError)
	flagSet.StringVarP(&url, "url", "u", defaultURL, "relay WebSocket URL")
	flagSet.BoolVar(&binary, "cbor", false, "request CBOR binary frames instead of JSON")
	flagSet.StringVarP(&logLevel, "log-level", "l", "info", "log level: trace, debug, info, warn, error")
	flagSet.StringVar(&logFormat, "log-format", logging.FormatAuto, "log format: json, text, auto")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("water-relay-client")
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

	logger, err := logging.New(os.Stderr, logging.Options{Level: logLevel, Format: logFormat})
	if err != nil {
		return process.ConfigError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream := &client.Stream{
		URL:     url,
		Binary:  binary,
		Handler: &messageLogger{logger: logger},
		Logger:  logger.With("component", "stream"),
	}
	return stream.Run(ctx)
}

// messageLogger logs stream events.
type messageLogger struct {
	logger *slog.Logger
}

func (m *messageLogger) Connected(url, subprotocol string) {
	m.logger.Info("connected", "url", url, "subprotocol", subprotocol)
}

func (m *messageLogger) Message(message wire.Message, receivedAt time.Time) {
	switch message := message.(type) {
	case wire.ButtonInput:
		m.logger.Info("message",
			"type", message.Type,
			"is_pushed", message.IsPushed,
			"received_at", receivedAt,
		)
	case wire.ControllerInput:
		m.logger.Info("message",
			"type", message.Type,
			"left", int32(message.Left),
			"right", int32(message.Right),
			"up", int32(message.Up),
			"down", int32(message.Down),
			"received_at", receivedAt,
		)
	}
}

func (m *messageLogger) Disconnected(err error, retryIn time.Duration) {
	// Stream already logs the failure with its cause.
	m.logger.Debug("waiting to reconnect", "retry_in", retryIn)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `water-relay-client — log messages from a running relay.

Usage:
  water-relay-client [flags]

Examples:
  # Log JSON messages from the local relay
  water-relay-client

  # Receive CBOR frames from a relay on another host
  water-relay-client --url ws://192.168.1.20:8080/ws --cbor

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
