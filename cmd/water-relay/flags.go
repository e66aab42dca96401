// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/ambient-works-jp/water-controller/lib/config"
)

// options holds the parsed command line. Only flags the operator set
// explicitly override the configuration file.
type options struct {
	configPath  string
	port        string
	baudRate    int
	readTimeout time.Duration
	wsHost      string
	wsPort      int
	wsPath      string
	logLevel    string
	logFormat   string
	metrics     bool
	showVersion bool
}

func newFlagSet(opts *options) *pflag.FlagSet {
	defaults := config.Default()

	flagSet := pflag.NewFlagSet("water-relay", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "configuration file (.yaml, .yml, .json, .jsonc); default $"+config.EnvConfigPath)
	flagSet.StringVarP(&opts.port, "port", "p", defaults.Serial.Port, "serial device path")
	flagSet.IntVarP(&opts.baudRate, "baud-rate", "b", defaults.Serial.BaudRate, "serial baud rate")
	flagSet.DurationVar(&opts.readTimeout, "read-timeout", defaults.Serial.ReadTimeout.Std(), "serial read timeout")
	flagSet.StringVar(&opts.wsHost, "ws-host", defaults.Server.Host, "WebSocket listen host")
	flagSet.IntVar(&opts.wsPort, "ws-port", defaults.Server.Port, "WebSocket listen port")
	flagSet.StringVar(&opts.wsPath, "ws-path", defaults.Server.Path, "WebSocket stream path")
	flagSet.StringVarP(&opts.logLevel, "log-level", "l", defaults.Log.Level, "log level: trace, debug, info, warn, error")
	flagSet.StringVar(&opts.logFormat, "log-format", defaults.Log.Format, "log format: json, text, auto")
	flagSet.BoolVar(&opts.metrics, "metrics", false, "serve Prometheus metrics at /metrics")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")
	return flagSet
}

// loadConfig layers defaults, the configuration file, and explicitly
// set flags, then validates the result.
func loadConfig(flagSet *pflag.FlagSet, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if flagSet.Changed("port") {
		cfg.Serial.Port = opts.port
	}
	if flagSet.Changed("baud-rate") {
		cfg.Serial.BaudRate = opts.baudRate
	}
	if flagSet.Changed("read-timeout") {
		cfg.Serial.ReadTimeout = config.Duration(opts.readTimeout)
	}
	if flagSet.Changed("ws-host") {
		cfg.Server.Host = opts.wsHost
	}
	if flagSet.Changed("ws-port") {
		cfg.Server.Port = opts.wsPort
	}
	if flagSet.Changed("ws-path") {
		cfg.Server.Path = opts.wsPath
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if flagSet.Changed("metrics") {
		cfg.Server.Metrics = opts.metrics
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}
