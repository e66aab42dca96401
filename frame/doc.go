// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package frame parses the controller's line protocol.
//
// The controller writes one CSV line per sample, roughly 100 times a
// second:
//
//	button,upLow,upHigh,rightLow,rightHigh,downLow,downHigh,leftLow,leftHigh
//
// Every field is 0 or 1. The four direction sensors each report two
// thresholds. A high reading without the matching low reading means the
// sensor or the firmware is broken, and the line is rejected.
//
// [Parse] is a pure function: it either returns a fully validated
// [Frame] or a [*ParseError] naming the first offending field, scanning
// left to right. There are no partially valid frames.
package frame
