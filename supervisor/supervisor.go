// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor runs the relay's long-lived units and defines the
// process lifetime.
//
// Each [Unit] runs on its own goroutine. A unit that returns while the
// context is still live, whether with an error, with nil, or by
// panicking, is restarted after the policy's delay. Run returns when
// the context is cancelled (after every unit has returned) or when a
// unit fails in a way restarting cannot fix: its restarts are exhausted
// or it returned an error marked with [Fatal].
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ambient-works-jp/water-controller/lib/clock"
	"github.com/ambient-works-jp/water-controller/metrics"
)

// ErrRestartsExhausted is wrapped by the error Run returns when a unit
// fails more often than the policy allows.
var ErrRestartsExhausted = errors.New("supervisor: restarts exhausted")

// Unit is a named long-running task. Run should return nil promptly
// once ctx is cancelled.
type Unit struct {
	Name string
	Run  func(ctx context.Context) error
}

// RestartPolicy is a fixed-delay restart policy shared by all units.
type RestartPolicy struct {
	Delay time.Duration

	// MaxRestarts bounds restarts per unit. 0 is unbounded.
	MaxRestarts int
}

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as not worth restarting for. Fatal(nil) is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	var fatal *fatalError
	return errors.As(err, &fatal)
}

// Supervisor holds the dependencies shared by every run.
type Supervisor struct {
	Policy  RestartPolicy
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Run supervises units until ctx is cancelled or one of them fails
// permanently. In the first case it returns nil; in the second it
// cancels the remaining units, waits for them, and returns the failure.
func (s *Supervisor) Run(ctx context.Context, units ...Unit) error {
	clk := s.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		failure  error
	)
	fail := func(err error) {
		failOnce.Do(func() {
			failure = err
			cancel()
		})
	}

	for _, unit := range units {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.supervise(ctx, clk, logger.With("unit", unit.Name), unit); err != nil {
				fail(err)
			}
		}()
	}
	wg.Wait()
	return failure
}

// supervise runs one unit, restarting it per the policy. It returns nil
// when ctx ends and an error when the unit must not be restarted.
func (s *Supervisor) supervise(ctx context.Context, clk clock.Clock, logger *slog.Logger, unit Unit) error {
	restarts := 0
	for {
		logger.Debug("starting unit", "restarts", restarts)
		err := runProtected(ctx, unit)
		if ctx.Err() != nil {
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Debug("unit returned during shutdown", "error", err)
			}
			return nil
		}

		if IsFatal(err) {
			logger.Error("unit failed fatally", "error", err)
			return fmt.Errorf("%s: %w", unit.Name, err)
		}
		if limit := s.Policy.MaxRestarts; limit > 0 && restarts >= limit {
			logger.Error("unit restarts exhausted", "restarts", restarts, "error", err)
			return fmt.Errorf("%s: %w after %d restarts: %w", unit.Name, ErrRestartsExhausted, restarts, errOrExited(err))
		}

		restarts++
		s.Metrics.UnitRestarted(unit.Name)
		if err != nil {
			logger.Warn("unit failed, restarting", "error", err, "retry_in", s.Policy.Delay, "restart", restarts)
		} else {
			logger.Warn("unit exited, restarting", "retry_in", s.Policy.Delay, "restart", restarts)
		}

		select {
		case <-clk.After(s.Policy.Delay):
		case <-ctx.Done():
			return nil
		}
	}
}

var errExited = errors.New("unit exited")

func errOrExited(err error) error {
	if err == nil {
		return errExited
	}
	return err
}

// runProtected converts a panic in unit into an error.
func runProtected(ctx context.Context, unit Unit) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v\n%s", recovered, debug.Stack())
		}
	}()
	return unit.Run(ctx)
}
