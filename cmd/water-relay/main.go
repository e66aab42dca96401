// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// water-relay reads controller frames from a serial device and streams
// them to WebSocket subscribers.
//
// Each line the controller firmware prints ("1,0,0,1,1,0,0,0,0") is
// parsed and re-published as two JSON messages, button-input and
// controller-input, to every client connected to ws://host:port/ws.
// Subscribers that negotiate the water-controller.cbor subprotocol
// receive the same messages as CBOR binary frames.
//
// The serial loop reopens the device after unplugging or read errors,
// and the supervisor restarts either half of the relay after a failure
// without disturbing the other. SIGINT or SIGTERM shuts down cleanly.
//
// "water-relay device-list" prints the serial devices present.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/ambient-works-jp/water-controller/hub"
	"github.com/ambient-works-jp/water-controller/lib/clock"
	"github.com/ambient-works-jp/water-controller/lib/config"
	"github.com/ambient-works-jp/water-controller/lib/logging"
	"github.com/ambient-works-jp/water-controller/lib/process"
	"github.com/ambient-works-jp/water-controller/lib/version"
	"github.com/ambient-works-jp/water-controller/metrics"
	"github.com/ambient-works-jp/water-controller/serial"
	"github.com/ambient-works-jp/water-controller/server"
	"github.com/ambient-works-jp/water-controller/supervisor"
	"github.com/ambient-works-jp/water-controller/wire"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var opts options
	flagSet := newFlagSet(&opts)

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("water-relay")
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
	if opts.showVersion {
		version.Print("water-relay")
		return nil
	}

	if args := flagSet.Args(); len(args) > 0 {
		if args[0] == "device-list" && len(args) == 1 {
			return listDevices()
		}
		return process.ConfigError(fmt.Errorf("unexpected argument: %s", args[0]))
	}

	cfg, err := loadConfig(flagSet, &opts)
	if err != nil {
		return process.ConfigError(err)
	}

	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return process.ConfigError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return relay(ctx, cfg, logger)
}

// relay wires the hub, the serial ingest loop, and the server under one
// supervisor and runs until ctx is cancelled.
func relay(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		registry       *prometheus.Registry
		metricsHandler http.Handler
	)
	if cfg.Server.Metrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			Registry: registry,
			// The server gzips /metrics itself.
			DisableCompression: true,
		})
	}
	// A nil registry yields nil metrics, whose methods are no-ops.
	var instruments *metrics.Metrics
	if registry != nil {
		instruments = metrics.New(registry)
	}

	events := hub.New[wire.Event](hub.Options{
		Capacity: cfg.Hub.Capacity,
		OnDrop:   instruments.HubDropped,
	})
	defer events.Close()

	clk := clock.Real()

	ingest, err := serial.NewIngest(serial.IngestConfig{
		Device:        cfg.Serial.Port,
		BaudRate:      cfg.Serial.BaudRate,
		ReadTimeout:   cfg.Serial.ReadTimeout.Std(),
		MaxLineLength: cfg.Serial.MaxLineLength,
		Retry: serial.RetryPolicy{
			Delay:       cfg.Serial.Retry.Delay.Std(),
			MaxAttempts: cfg.Serial.Retry.MaxAttempts,
		},
		Publisher: events,
		Clock:     clk,
		Logger:    logger.With("component", "serial"),
		Metrics:   instruments,
	})
	if err != nil {
		return process.ConfigError(err)
	}

	relayServer, err := server.New(server.Config{
		Address:        cfg.Address(),
		Path:           cfg.Server.Path,
		PingInterval:   cfg.Server.PingInterval.Std(),
		WriteTimeout:   cfg.Server.WriteTimeout.Std(),
		Hub:            events,
		SerialState:    func() string { return ingest.State().String() },
		MetricsHandler: metricsHandler,
		Clock:          clk,
		Logger:         logger.With("component", "server"),
		Metrics:        instruments,
	})
	if err != nil {
		return process.ConfigError(err)
	}

	logger.Info("water-relay starting",
		"version", version.Info(),
		"device", cfg.Serial.Port,
		"baud_rate", cfg.Serial.BaudRate,
		"url", fmt.Sprintf("ws://%s%s", cfg.Address(), cfg.Server.Path),
		"metrics", cfg.Server.Metrics,
	)

	supervise := &supervisor.Supervisor{
		Policy: supervisor.RestartPolicy{
			Delay:       cfg.Supervisor.RestartDelay.Std(),
			MaxRestarts: cfg.Supervisor.MaxRestarts,
		},
		Clock:   clk,
		Logger:  logger.With("component", "supervisor"),
		Metrics: instruments,
	}
	err = supervise.Run(ctx,
		supervisor.Unit{Name: "serial", Run: ingest.Run},
		supervisor.Unit{Name: "server", Run: relayServer.Run},
	)
	if err != nil {
		if supervisor.IsFatal(err) {
			return process.ConfigError(err)
		}
		return err
	}

	stats := ingest.Stats()
	logger.Info("water-relay stopped",
		"lines", stats.Lines,
		"rejected", stats.Rejected,
		"published", stats.Published,
	)
	return nil
}

func listDevices() error {
	devices, err := serial.ListDevices()
	if err != nil {
		return err
	}
	return serial.WriteDevices(os.Stdout, devices)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `water-relay — serial controller to WebSocket relay.

Reads CSV frames from the controller's serial port and streams them to
WebSocket subscribers as button-input and controller-input messages.

Usage:
  water-relay [flags]
  water-relay device-list

Examples:
  # Relay from a specific device on all interfaces
  water-relay --port /dev/ttyACM0 --ws-host 0.0.0.0

  # Use a configuration file and expose metrics
  water-relay --config relay.yaml --metrics

  # List serial devices
  water-relay device-list

Endpoints:
  ws://<host>:<port><path>   event stream (subprotocols water-controller.json, water-controller.cbor)
  /healthz                   JSON health report
  /metrics                   Prometheus metrics (with --metrics)

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
