// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/ambient-works-jp/water-controller/hub"
	"github.com/ambient-works-jp/water-controller/lib/clock"
	"github.com/ambient-works-jp/water-controller/lib/logging"
	"github.com/ambient-works-jp/water-controller/lib/testutil"
	"github.com/ambient-works-jp/water-controller/wire"
)

const retryDelay = 2 * time.Second

type harness struct {
	ingest *Ingest
	hub    *hub.Hub[wire.Event]
	sub    *hub.Subscription[wire.Event]
	clock  *clock.FakeClock
	opener *fakeOpener
	cancel context.CancelFunc
	done   chan error
}

func startIngest(t *testing.T, retry RetryPolicy, opens ...fakeOpen) *harness {
	t.Helper()
	h := &harness{
		hub:    hub.New[wire.Event](hub.Options{Capacity: 64}),
		clock:  clock.Fake(time.Unix(1_700_000_000, 0)),
		opener: newFakeOpener(opens...),
		done:   make(chan error, 1),
	}
	h.sub = h.hub.Subscribe()

	ingest, err := NewIngest(IngestConfig{
		Device:      "/dev/ttyTEST0",
		BaudRate:    115200,
		ReadTimeout: 100 * time.Millisecond,
		Retry:       retry,
		Opener:      h.opener,
		Publisher:   h.hub,
		Clock:       h.clock,
		Logger:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("NewIngest: %v", err)
	}
	h.ingest = ingest

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- ingest.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		h.sub.Close()
	})
	return h
}

func (h *harness) receive(t *testing.T) wire.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	event, err := h.sub.Receive(ctx)
	if err != nil {
		t.Fatalf("waiting for event: %v", err)
	}
	return event
}

func (h *harness) waitForState(t *testing.T, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.ingest.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected state %s, still %s", want, h.ingest.State())
		}
		time.Sleep(time.Millisecond) //nolint:realclock polling loop state
	}
}

func TestIngestPublishesParsedLines(t *testing.T) {
	port := newFakePort(
		fakeRead{data: "0,0,0,0,0,0,0,0,0\r\n"},
		fakeRead{data: "1,1,0,1"},
		fakeRead{data: ",1,1,0,1,1\r\n"},
	)
	h := startIngest(t, RetryPolicy{Delay: retryDelay}, fakeOpen{port: port})

	want := []string{
		`{"type":"button-input","isPushed":false}`,
		`{"type":"controller-input","left":0,"right":0,"up":0,"down":0}`,
		`{"type":"button-input","isPushed":true}`,
		`{"type":"controller-input","left":2,"right":2,"up":1,"down":1}`,
	}
	for _, expected := range want {
		event := h.receive(t)
		if string(event.JSON) != expected {
			t.Fatalf("expected %s, got %s", expected, event.JSON)
		}
		if len(event.CBOR) == 0 {
			t.Fatalf("expected CBOR encoding alongside %s", event.JSON)
		}
	}
	if h.ingest.State() != StateReading {
		t.Errorf("expected StateReading, got %s", h.ingest.State())
	}

	h.cancel()
	if err := testutil.RequireReceive(t, h.done, 5*time.Second, "Run exit after cancel"); err != nil {
		t.Fatalf("expected nil from Run on cancel, got %v", err)
	}
	if !port.isClosed() {
		t.Error("expected port closed on shutdown")
	}
	if h.ingest.State() != StateClosed {
		t.Errorf("expected StateClosed after Run, got %s", h.ingest.State())
	}
}

func TestIngestSkipsInvalidLines(t *testing.T) {
	port := newFakePort(
		fakeRead{data: "2,0,0,0,0,0,0,0,0\n"},
		fakeRead{data: "0,0,0\n"},
		fakeRead{data: "0,0,0,0,1,0,0,0,0\n"},
		fakeRead{data: "\xff\xfe,0\n"},
		fakeRead{data: "1,0,0,0,0,0,0,0,0\n"},
	)
	h := startIngest(t, RetryPolicy{Delay: retryDelay}, fakeOpen{port: port})

	event := h.receive(t)
	if string(event.JSON) != `{"type":"button-input","isPushed":true}` {
		t.Fatalf("expected the first valid line's button event, got %s", event.JSON)
	}
	h.receive(t)

	stats := h.ingest.Stats()
	if stats.Rejected != 4 {
		t.Errorf("expected 4 rejected lines, got %d", stats.Rejected)
	}
	if stats.Published != 2 {
		t.Errorf("expected 2 published events, got %d", stats.Published)
	}
}

func TestIngestReportsEmptyLines(t *testing.T) {
	port := newFakePort(
		fakeRead{data: "\r\n"},
		fakeRead{data: "0,0,0,0,0,0,0,0,1\r\n"},
	)
	h := startIngest(t, RetryPolicy{Delay: retryDelay}, fakeOpen{port: port})

	h.receive(t)
	controller := h.receive(t)
	if string(controller.JSON) != `{"type":"controller-input","left":0,"right":0,"up":0,"down":1}` {
		t.Fatalf("unexpected controller event %s", controller.JSON)
	}

	stats := h.ingest.Stats()
	if stats.Lines != 2 {
		t.Errorf("expected 2 lines read, got %d", stats.Lines)
	}
	if stats.Rejected != 1 {
		t.Errorf("expected the empty line rejected, got %d", stats.Rejected)
	}
	if stats.Published != 2 {
		t.Errorf("expected 2 published events, got %d", stats.Published)
	}
}

func TestIngestDiscardsOverlongLines(t *testing.T) {
	port := newFakePort(
		fakeRead{data: strings.Repeat("9", 2000)},
		fakeRead{data: strings.Repeat("9", 2000) + "\n"},
		fakeRead{data: "0,1,0,0,0,0,0,0,0\n"},
	)
	h := startIngest(t, RetryPolicy{Delay: retryDelay}, fakeOpen{port: port})

	h.receive(t)
	controller := h.receive(t)
	if string(controller.JSON) != `{"type":"controller-input","left":0,"right":0,"up":1,"down":0}` {
		t.Fatalf("unexpected controller event %s", controller.JSON)
	}
	if rejected := h.ingest.Stats().Rejected; rejected != 1 {
		t.Errorf("expected the overlong line reported once, got %d", rejected)
	}
}

// A broken pipe mid-read closes the device and reopens it after the
// retry delay. The partial line from before the failure is dropped.
func TestIngestReopensAfterBrokenPipe(t *testing.T) {
	first := newFakePort(
		fakeRead{data: "0,0,0,0,0,0,0,0,0\n"},
		fakeRead{data: "1,1,1"},
		fakeRead{err: syscall.EPIPE},
	)
	second := newFakePort(
		fakeRead{data: ",0,0,0,0,0,0\n"},
		fakeRead{data: "1,1,0,1,1,1,0,1,1\n"},
	)
	h := startIngest(t, RetryPolicy{Delay: retryDelay}, fakeOpen{port: first}, fakeOpen{port: second})

	h.receive(t)
	h.receive(t)

	h.clock.WaitForTimers(1)
	if !first.isClosed() {
		t.Fatal("expected the failed port to be closed before waiting")
	}
	if h.ingest.State() != StateClosed {
		t.Fatalf("expected StateClosed while waiting, got %s", h.ingest.State())
	}
	if calls := h.opener.callCount(); calls != 1 {
		t.Fatalf("expected no reopen before the delay, got %d opens", calls)
	}

	h.clock.Advance(retryDelay - time.Millisecond)
	if calls := h.opener.callCount(); calls != 1 {
		t.Fatalf("expected no reopen before the full delay, got %d opens", calls)
	}
	h.clock.Advance(time.Millisecond)
	if attempt := testutil.RequireReceive(t, h.opener.opened, 5*time.Second, "first open"); attempt != 1 {
		t.Fatalf("expected first open, got %d", attempt)
	}
	if attempt := testutil.RequireReceive(t, h.opener.opened, 5*time.Second, "reopen"); attempt != 2 {
		t.Fatalf("expected second open, got %d", attempt)
	}

	// ",0,0,0,0,0,0" alone is a 7-field line: rejected, not glued to
	// the "1,1,1" prefix from the old connection.
	button := h.receive(t)
	if string(button.JSON) != `{"type":"button-input","isPushed":true}` {
		t.Fatalf("expected event from the reopened device, got %s", button.JSON)
	}
	controller := h.receive(t)
	if string(controller.JSON) != `{"type":"controller-input","left":2,"right":2,"up":1,"down":1}` {
		t.Fatalf("unexpected controller event %s", controller.JSON)
	}
	if rejected := h.ingest.Stats().Rejected; rejected != 1 {
		t.Errorf("expected 1 rejected line, got %d", rejected)
	}
}

func TestIngestRetriesOpenUntilDeviceAppears(t *testing.T) {
	port := newFakePort(fakeRead{data: "0,0,0,0,0,0,0,0,0\n"})
	h := startIngest(t, RetryPolicy{Delay: retryDelay},
		fakeOpen{err: errors.New("no such file or directory")},
		fakeOpen{err: errors.New("permission denied")},
		fakeOpen{port: port},
	)

	for attempt := 1; attempt <= 2; attempt++ {
		testutil.RequireReceive(t, h.opener.opened, 5*time.Second, "open attempt %d", attempt)
		h.clock.WaitForTimers(1)
		if h.ingest.State() != StateOpening {
			t.Fatalf("expected StateOpening between attempts, got %s", h.ingest.State())
		}
		h.clock.Advance(retryDelay)
	}

	h.receive(t)
	h.waitForState(t, StateReading)
}

func TestIngestBoundedRetriesExhaust(t *testing.T) {
	h := startIngest(t, RetryPolicy{Delay: retryDelay, MaxAttempts: 3})

	for attempt := 1; attempt < 3; attempt++ {
		testutil.RequireReceive(t, h.opener.opened, 5*time.Second, "open attempt %d", attempt)
		h.clock.WaitForTimers(1)
		h.clock.Advance(retryDelay)
	}

	err := testutil.RequireReceive(t, h.done, 5*time.Second, "Run exit after exhausting retries")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if calls := h.opener.callCount(); calls != 3 {
		t.Errorf("expected 3 open attempts, got %d", calls)
	}
}

func TestIngestCancelDuringRetryWait(t *testing.T) {
	h := startIngest(t, RetryPolicy{Delay: time.Hour})
	testutil.RequireReceive(t, h.opener.opened, 5*time.Second, "first open attempt")
	h.clock.WaitForTimers(1)

	h.cancel()
	if err := testutil.RequireReceive(t, h.done, 5*time.Second, "Run exit"); err != nil {
		t.Fatalf("expected nil on cancel, got %v", err)
	}
}

func TestNewIngestValidates(t *testing.T) {
	tests := []struct {
		name   string
		config IngestConfig
	}{
		{"no device", IngestConfig{BaudRate: 9600, Publisher: hub.New[wire.Event](hub.Options{})}},
		{"no publisher", IngestConfig{Device: "/dev/ttyS0", BaudRate: 9600}},
		{"zero baud", IngestConfig{Device: "/dev/ttyS0", Publisher: hub.New[wire.Event](hub.Options{})}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := NewIngest(test.config); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
