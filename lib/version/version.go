// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build information for the relay binaries.
//
// Values are injected at build time:
//
//	go build -ldflags "-X github.com/ambient-works-jp/water-controller/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"os"
	"runtime"
)

// Set via -ldflags at build time.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Info returns the string printed by --version.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full returns Info plus the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Print writes "<binary> <Info()>" to stdout.
func Print(binary string) {
	fmt.Fprintf(os.Stdout, "%s %s\n", binary, Info())
}
