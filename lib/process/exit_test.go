// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"testing"
)

func TestCode(t *testing.T) {
	plain := errors.New("serial port gone")
	wrappedConfig := fmt.Errorf("loading: %w", ConfigError(errors.New("bad baud rate")))

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", plain, ExitFailure},
		{"config", ConfigError(plain), ExitConfig},
		{"wrapped config", wrappedConfig, ExitConfig},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Code(test.err); got != test.want {
				t.Fatalf("expected exit code %d, got %d", test.want, got)
			}
		})
	}
}

func TestConfigErrorPreservesChain(t *testing.T) {
	cause := errors.New("no such host")
	err := ConfigError(cause)
	if !errors.Is(err, cause) {
		t.Fatal("ConfigError should unwrap to its cause")
	}
	if err.Error() != cause.Error() {
		t.Fatalf("expected message %q, got %q", cause.Error(), err.Error())
	}
	if ConfigError(nil) != nil {
		t.Fatal("ConfigError(nil) should be nil")
	}
}
