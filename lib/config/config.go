// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable consulted when no
// --config flag is given.
const EnvConfigPath = "WATER_RELAY_CONFIG"

// Config is the complete relay configuration.
type Config struct {
	Serial     SerialConfig     `yaml:"serial"     json:"serial"`
	Server     ServerConfig     `yaml:"server"     json:"server"`
	Hub        HubConfig        `yaml:"hub"        json:"hub"`
	Supervisor SupervisorConfig `yaml:"supervisor" json:"supervisor"`
	Log        LogConfig        `yaml:"log"        json:"log"`
}

// SerialConfig configures the hardware link and the ingest loop.
type SerialConfig struct {
	// Port is the device path, e.g. /dev/ttyACM0 or /dev/cu.usbmodem1101.
	Port string `yaml:"port" json:"port"`

	// BaudRate must match the controller firmware. Default: 115200.
	BaudRate int `yaml:"baud_rate" json:"baud_rate"`

	// ReadTimeout bounds each blocking read. A timeout is not an error;
	// it is how the loop notices shutdown. Default: 100ms.
	ReadTimeout Duration `yaml:"read_timeout" json:"read_timeout"`

	// MaxLineLength discards lines that never terminate (wrong baud
	// rate, line noise). Default: 1024 bytes.
	MaxLineLength int `yaml:"max_line_length" json:"max_line_length"`

	// Retry governs reopening the device after open or read failures.
	Retry RetryConfig `yaml:"retry" json:"retry"`
}

// RetryConfig is a fixed-delay retry policy.
type RetryConfig struct {
	// Delay is the wait between attempts. Default: 1s.
	Delay Duration `yaml:"delay" json:"delay"`

	// MaxAttempts caps consecutive failed opens before the ingest loop
	// reports failure to the supervisor. 0 retries forever (default).
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
}

// ServerConfig configures the subscriber-facing WebSocket server.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// Path serves the live stream. Default: /ws.
	Path string `yaml:"path" json:"path"`

	// PingInterval is how often idle peers are pinged. A peer that has
	// not answered within two intervals is dropped. Default: 15s.
	PingInterval Duration `yaml:"ping_interval" json:"ping_interval"`

	// WriteTimeout bounds a single frame write to a subscriber.
	// Default: 5s.
	WriteTimeout Duration `yaml:"write_timeout" json:"write_timeout"`

	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool `yaml:"metrics" json:"metrics"`
}

// HubConfig configures the fan-out hub.
type HubConfig struct {
	// Capacity is the per-subscriber queue length. The oldest queued
	// message is dropped when a subscriber falls this far behind.
	// Default: 100 (one second of a 100 Hz controller).
	Capacity int `yaml:"capacity" json:"capacity"`
}

// SupervisorConfig is the restart policy for the ingest loop and the
// server.
type SupervisorConfig struct {
	// RestartDelay is the wait before restarting a failed unit.
	// Default: 2s.
	RestartDelay Duration `yaml:"restart_delay" json:"restart_delay"`

	// MaxRestarts caps restarts per unit before the relay exits. 0
	// restarts forever (default).
	MaxRestarts int `yaml:"max_restarts" json:"max_restarts"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error. Default: info.
	Level string `yaml:"level" json:"level"`

	// Format is one of json, text, auto. auto picks text on a terminal
	// and JSON otherwise. Default: auto.
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file or flag says
// otherwise.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:          "/dev/cu.usbmodem1101",
			BaudRate:      115200,
			ReadTimeout:   Milliseconds(100),
			MaxLineLength: 1024,
			Retry: RetryConfig{
				Delay:       Seconds(1),
				MaxAttempts: 0,
			},
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			Path:         "/ws",
			PingInterval: Seconds(15),
			WriteTimeout: Seconds(5),
		},
		Hub: HubConfig{
			Capacity: 100,
		},
		Supervisor: SupervisorConfig{
			RestartDelay: Seconds(2),
			MaxRestarts:  0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load returns Default() overlaid with the file at path, or with the
// file named by WATER_RELAY_CONFIG when path is empty. With neither,
// the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile returns Default() overlaid with the file at path. The format
// is chosen by extension.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = cfg.decodeYAML(data)
	case ".json", ".jsonc":
		err = cfg.decodeJSON(data)
	default:
		return nil, fmt.Errorf("config %s: unsupported extension (want .yaml, .yml, .json, or .jsonc)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) decodeYAML(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty document leaves every default in place.
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) decodeJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	return decoder.Decode(c)
}

// Address returns the server's host:port listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func (c *Config) expandVariables() {
	c.Serial.Port = expandVars(c.Serial.Port)
	c.Server.Host = expandVars(c.Server.Host)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

var (
	logLevels  = []string{"trace", "debug", "info", "warn", "error"}
	logFormats = []string{"json", "text", "auto"}
)

// reservedPaths are served by the relay itself and cannot host the
// stream.
var reservedPaths = []string{"/healthz", "/metrics"}

// Validate reports every invalid field, joined.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Serial.Port) == "" {
		errs = append(errs, errors.New("serial.port is required"))
	}
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate))
	}
	if c.Serial.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("serial.read_timeout must be positive, got %s", c.Serial.ReadTimeout))
	}
	if c.Serial.MaxLineLength <= 0 {
		errs = append(errs, fmt.Errorf("serial.max_line_length must be positive, got %d", c.Serial.MaxLineLength))
	}
	if c.Serial.Retry.Delay <= 0 {
		errs = append(errs, fmt.Errorf("serial.retry.delay must be positive, got %s", c.Serial.Retry.Delay))
	}
	if c.Serial.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("serial.retry.max_attempts must not be negative, got %d", c.Serial.Retry.MaxAttempts))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 0-65535, got %d", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		errs = append(errs, fmt.Errorf("server.path must start with /, got %q", c.Server.Path))
	} else if contains(reservedPaths, c.Server.Path) {
		errs = append(errs, fmt.Errorf("server.path %q is reserved", c.Server.Path))
	}
	if c.Server.PingInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.ping_interval must be positive, got %s", c.Server.PingInterval))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive, got %s", c.Server.WriteTimeout))
	}

	if c.Hub.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("hub.capacity must be positive, got %d", c.Hub.Capacity))
	}

	if c.Supervisor.RestartDelay <= 0 {
		errs = append(errs, fmt.Errorf("supervisor.restart_delay must be positive, got %s", c.Supervisor.RestartDelay))
	}
	if c.Supervisor.MaxRestarts < 0 {
		errs = append(errs, fmt.Errorf("supervisor.max_restarts must not be negative, got %d", c.Supervisor.MaxRestarts))
	}

	if !contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of %v, got %q", logLevels, c.Log.Level))
	}
	if !contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v, got %q", logFormats, c.Log.Format))
	}

	return errors.Join(errs...)
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
