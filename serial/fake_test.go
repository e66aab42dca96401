// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"errors"
	"sync"
	"time"
)

// fakePort replays scripted reads. When the script is empty, Read
// behaves like a real port whose timeout expired: it waits briefly and
// returns (0, nil).
type fakePort struct {
	reads  chan fakeRead
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

type fakeRead struct {
	data string
	err  error
}

func newFakePort(script ...fakeRead) *fakePort {
	port := &fakePort{
		reads: make(chan fakeRead, 64),
		done:  make(chan struct{}),
	}
	for _, read := range script {
		port.reads <- read
	}
	return port
}

func (p *fakePort) Read(buffer []byte) (int, error) {
	select {
	case read := <-p.reads:
		n := copy(buffer, read.data)
		return n, read.err
	case <-p.done:
		return 0, errors.New("read on closed port")
	case <-time.After(time.Millisecond): //nolint:realclock emulated read timeout
		return 0, nil
	}
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	return nil
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fakeOpener hands out ports (or errors) in order. Once the script is
// exhausted every further Open fails.
type fakeOpener struct {
	mu      sync.Mutex
	results []fakeOpen
	calls   int
	opened  chan int
}

type fakeOpen struct {
	port *fakePort
	err  error
}

func newFakeOpener(results ...fakeOpen) *fakeOpener {
	return &fakeOpener{results: results, opened: make(chan int, 64)}
}

func (o *fakeOpener) Open(device string, baudRate int, readTimeout time.Duration) (Port, error) {
	o.mu.Lock()
	call := o.calls
	o.calls++
	var result fakeOpen
	if call < len(o.results) {
		result = o.results[call]
	} else {
		result = fakeOpen{err: errors.New("no such device")}
	}
	o.mu.Unlock()

	o.opened <- call + 1
	if result.err != nil {
		return nil, result.err
	}
	return result.port, nil
}

func (o *fakeOpener) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}
