// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the relay configuration.
//
// Values come from three layers, applied in order:
//
//  1. [Default]: the values the relay runs with when nothing else is
//     given (115200 baud, 100ms read timeout, ws://127.0.0.1:8080/ws).
//  2. An optional file named by --config or the WATER_RELAY_CONFIG
//     environment variable. YAML (.yaml, .yml) and JSON with comments
//     (.json, .jsonc) are accepted. Unknown keys are rejected so a typo
//     does not silently fall back to a default.
//  3. Command-line flags the operator explicitly set.
//
// [Config.Validate] runs last and reports every problem at once. A
// validation failure is a configuration error: the relay exits instead
// of retrying.
//
// Durations are written as strings ("100ms", "2s") in both formats.
// ${VAR} and ${VAR:-default} are expanded in the serial port path and
// the listen host so one file can serve machines whose device names
// differ.
package config
