// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package hub is the broadcast point between the ingest loop and the
// connected subscribers.
//
// One producer publishes; any number of subscribers receive. Each
// subscription owns a bounded FIFO queue. When a subscriber falls a full
// queue behind, the oldest queued message is dropped to make room for
// the newest: a live controller stream is only useful when fresh, and a
// slow reader must never hold up the producer or the other readers.
//
// Subscribers see only messages published after they subscribed.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultCapacity holds one second of a 100 Hz source.
const DefaultCapacity = 100

// ErrClosed is returned by Receive after the subscription or its hub
// has been closed.
var ErrClosed = errors.New("hub: subscription closed")

// Options configures a Hub.
type Options struct {
	// Capacity is the per-subscription queue length. Zero means
	// DefaultCapacity.
	Capacity int

	// OnDrop, if set, is called once per message evicted from a full
	// queue. It runs on the publishing goroutine with the hub's lock
	// held and must not call back into the hub.
	OnDrop func()
}

// Hub fans messages out to subscriptions. All methods are safe for
// concurrent use.
type Hub[T any] struct {
	mu            sync.Mutex
	capacity      int
	onDrop        func()
	subscriptions map[*Subscription[T]]struct{}
	closed        bool
}

// New creates an open hub.
func New[T any](options Options) *Hub[T] {
	capacity := options.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < 0 {
		panic(fmt.Sprintf("hub: capacity must be positive, got %d", capacity))
	}
	return &Hub[T]{
		capacity:      capacity,
		onDrop:        options.OnDrop,
		subscriptions: make(map[*Subscription[T]]struct{}),
	}
}

// Subscribe registers a new subscription. On a closed hub the returned
// subscription is already closed.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	subscription := &Subscription[T]{
		hub:    h,
		queue:  make([]T, 0, h.capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		subscription.closeLocked()
		return subscription
	}
	h.subscriptions[subscription] = struct{}{}
	return subscription
}

// Publish queues msg on every subscription and returns how many it
// reached. It never blocks on a subscriber.
func (h *Hub[T]) Publish(msg T) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	for subscription := range h.subscriptions {
		if subscription.push(msg, h.capacity) && h.onDrop != nil {
			h.onDrop()
		}
	}
	return len(h.subscriptions)
}

// Len returns the number of open subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscriptions)
}

// Close closes every subscription. Later Publish calls are no-ops and
// later Subscribe calls return closed subscriptions. Close is
// idempotent.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for subscription := range h.subscriptions {
		subscription.mu.Lock()
		subscription.closeLocked()
		subscription.mu.Unlock()
	}
	clear(h.subscriptions)
}

func (h *Hub[T]) remove(subscription *Subscription[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscriptions, subscription)
}

// Subscription is one subscriber's view of the hub. Receive is meant
// to be called from a single goroutine; Close and Dropped may be called
// from any.
type Subscription[T any] struct {
	hub *Hub[T]

	mu      sync.Mutex
	queue   []T
	dropped uint64
	closed  bool

	// notify (capacity 1) wakes a blocked Receive after a push.
	notify chan struct{}
	done   chan struct{}
}

// push appends msg, evicting the oldest message if the queue is full.
// Reports whether a message was evicted.
func (s *Subscription[T]) push(msg T, capacity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	evicted := false
	if len(s.queue) >= capacity {
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.dropped++
		evicted = true
	}
	s.queue = append(s.queue, msg)

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return evicted
}

// Receive returns the oldest queued message, blocking until one is
// published, ctx is done, or the subscription is closed. Messages
// queued before a close are discarded; Receive returns ErrClosed.
func (s *Subscription[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return zero, ErrClosed
		}
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Done is closed when the subscription closes.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Dropped returns how many messages were evicted from this
// subscription's queue because it fell behind.
func (s *Subscription[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Pending returns the number of queued messages.
func (s *Subscription[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close unsubscribes. It is idempotent.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closeLocked()
	s.mu.Unlock()
	if !alreadyClosed {
		s.hub.remove(s)
	}
}

func (s *Subscription[T]) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
}
