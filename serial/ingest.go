// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ambient-works-jp/water-controller/frame"
	"github.com/ambient-works-jp/water-controller/lib/clock"
	"github.com/ambient-works-jp/water-controller/lib/logging"
	"github.com/ambient-works-jp/water-controller/metrics"
	"github.com/ambient-works-jp/water-controller/wire"
)

// State is the ingest loop's position in its state machine.
type State int32

const (
	// StateClosed: no device handle. Entered at start and after a read
	// failure.
	StateClosed State = iota
	// StateOpening: attempting to open the device, possibly between
	// retries.
	StateOpening
	// StateReading: the device is open and lines are flowing.
	StateReading
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateReading:
		return "reading"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrRetriesExhausted is wrapped by the error Run returns when a
// bounded retry policy runs out of open attempts.
var ErrRetriesExhausted = errors.New("serial: open retries exhausted")

// RetryPolicy is a fixed-delay retry policy for opening the device.
type RetryPolicy struct {
	Delay time.Duration

	// MaxAttempts bounds consecutive failed opens. 0 is unbounded.
	MaxAttempts int
}

// Publisher receives encoded events. hub.Hub[wire.Event] satisfies it.
type Publisher interface {
	Publish(event wire.Event) int
}

// IngestConfig holds the dependencies and settings for an Ingest.
type IngestConfig struct {
	Device        string
	BaudRate      int
	ReadTimeout   time.Duration
	MaxLineLength int
	Retry         RetryPolicy

	Opener    Opener
	Publisher Publisher
	Clock     clock.Clock
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Ingest reads lines from the device and publishes their events.
type Ingest struct {
	config IngestConfig
	state  atomic.Int32
	logger *slog.Logger

	lines     atomic.Uint64
	rejected  atomic.Uint64
	published atomic.Uint64
}

// NewIngest validates config and returns a loop in StateClosed.
func NewIngest(config IngestConfig) (*Ingest, error) {
	if config.Device == "" {
		return nil, errors.New("serial: device is required")
	}
	if config.Publisher == nil {
		return nil, errors.New("serial: publisher is required")
	}
	if config.BaudRate <= 0 {
		return nil, fmt.Errorf("serial: baud rate must be positive, got %d", config.BaudRate)
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 100 * time.Millisecond
	}
	if config.MaxLineLength <= 0 {
		config.MaxLineLength = 1024
	}
	if config.Retry.Delay <= 0 {
		config.Retry.Delay = time.Second
	}
	if config.Opener == nil {
		config.Opener = DeviceOpener{}
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Ingest{
		config: config,
		logger: config.Logger.With("device", config.Device),
	}, nil
}

// State returns the current state. Safe to call from any goroutine.
func (i *Ingest) State() State {
	return State(i.state.Load())
}

// Stats are running totals since the loop was created.
type Stats struct {
	Lines     uint64
	Rejected  uint64
	Published uint64
}

// Stats returns the running totals.
func (i *Ingest) Stats() Stats {
	return Stats{
		Lines:     i.lines.Load(),
		Rejected:  i.rejected.Load(),
		Published: i.published.Load(),
	}
}

func (i *Ingest) setState(state State) {
	previous := State(i.state.Swap(int32(state)))
	i.config.Metrics.SetSerialState(int(state))
	if previous != state {
		i.logger.Debug("serial state changed", "from", previous, "to", state)
	}
}

// Run opens the device and reads until ctx is cancelled, reopening
// after failures. It returns nil on cancellation and an error wrapping
// ErrRetriesExhausted when a bounded retry policy runs out.
func (i *Ingest) Run(ctx context.Context) error {
	defer i.setState(StateClosed)

	assembler := newLineAssembler(i.config.MaxLineLength)
	failedOpens := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		i.setState(StateOpening)
		port, err := i.config.Opener.Open(i.config.Device, i.config.BaudRate, i.config.ReadTimeout)
		if err != nil {
			failedOpens++
			i.config.Metrics.SerialFailed("open")
			if limit := i.config.Retry.MaxAttempts; limit > 0 && failedOpens >= limit {
				return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, failedOpens, err)
			}
			i.logger.Warn("serial open failed",
				"attempt", failedOpens,
				"retry_in", i.config.Retry.Delay,
				"error", err,
			)
			if !i.wait(ctx) {
				return nil
			}
			continue
		}

		failedOpens = 0
		assembler.reset()
		i.config.Metrics.SerialConnected()
		i.setState(StateReading)
		i.logger.Info("serial device opened",
			"baud_rate", i.config.BaudRate,
			"read_timeout", i.config.ReadTimeout,
		)

		err = i.read(ctx, port, assembler)
		if closeErr := port.Close(); closeErr != nil {
			i.logger.Debug("closing serial device", "error", closeErr)
		}
		i.setState(StateClosed)

		if err == nil {
			return nil
		}
		i.config.Metrics.SerialFailed("read")
		i.logger.Warn("serial read failed, reopening",
			"retry_in", i.config.Retry.Delay,
			"partial_line_bytes", assembler.pending(),
			"error", err,
		)
		if !i.wait(ctx) {
			return nil
		}
	}
}

// wait sleeps for the retry delay. Returns false if ctx ended first.
func (i *Ingest) wait(ctx context.Context) bool {
	select {
	case <-i.config.Clock.After(i.config.Retry.Delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// read pulls bytes until ctx is cancelled (returns nil) or the device
// fails (returns the error).
func (i *Ingest) read(ctx context.Context, port Port, assembler *lineAssembler) error {
	buffer := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := port.Read(buffer)
		if n > 0 {
			assembler.feed(buffer[:n], i.handleLine, i.handleReject)
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return err
		}
	}
}

func (i *Ingest) handleLine(line []byte) {
	i.lines.Add(1)
	i.config.Metrics.LineRead()

	text := string(line)
	i.logger.Log(context.Background(), logging.LevelTrace, "line read", "raw_line", text)

	parsed, err := frame.Parse(text)
	if err != nil {
		rule := "unknown"
		var parseError *frame.ParseError
		if errors.As(err, &parseError) {
			rule = parseError.Kind.String()
		}
		i.rejected.Add(1)
		i.config.Metrics.LineRejected(rule)
		i.logger.Warn("rejected serial line", "raw_line", text, "rule", rule, "error", err)
		return
	}
	i.config.Metrics.FrameParsed()

	button, controller, err := wire.Encode(parsed)
	if err != nil {
		i.logger.Error("encoding frame", "frame", parsed.String(), "error", err)
		return
	}
	for _, event := range [2]wire.Event{button, controller} {
		i.published.Add(1)
		i.config.Publisher.Publish(event)
		i.config.Metrics.MessagePublished(event.Type)
	}
}

func (i *Ingest) handleReject(reason string, prefix []byte) {
	i.rejected.Add(1)
	i.config.Metrics.LineRejected(reason)

	const previewBytes = 64
	if len(prefix) > previewBytes {
		prefix = prefix[:previewBytes]
	}
	i.logger.Warn("rejected serial line", "raw_line", fmt.Sprintf("%q", prefix), "rule", reason)
}
