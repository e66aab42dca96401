// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes used by the relay binaries.
const (
	// ExitFailure is a runtime failure, including an exhausted restart
	// policy.
	ExitFailure = 1

	// ExitConfig is an invalid flag, configuration file, or listen
	// address.
	ExitConfig = 2
)

// ExitCoder is implemented by errors that choose their own exit code.
type ExitCoder interface {
	ExitCode() int
}

// ConfigError marks err as a configuration problem (exit code 2).
func ConfigError(err error) error {
	if err == nil {
		return nil
	}
	return &configError{err: err}
}

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }
func (e *configError) ExitCode() int { return ExitConfig }

// Code returns the exit code for err: 0 for nil, the code of the first
// ExitCoder in the chain, or ExitFailure.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitFailure
}

// Fatal writes "error: err" to stderr and exits with Code(err).
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(Code(err))
}
