// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the relay's Prometheus instruments.
//
// A nil *Metrics is valid and every method on it is a no-op, so
// components take one unconditionally and the binary decides whether to
// register anything.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "water_relay"

// Metrics is the set of relay instruments.
type Metrics struct {
	linesRead          prometheus.Counter
	framesParsed       prometheus.Counter
	linesRejected      *prometheus.CounterVec
	messagesPublished  *prometheus.CounterVec
	hubDrops           prometheus.Counter
	serialConnects     prometheus.Counter
	serialFailures     *prometheus.CounterVec
	serialState        prometheus.Gauge
	subscribers        prometheus.Gauge
	subscriberConnects prometheus.Counter
	subscriberLeaves   *prometheus.CounterVec
	unitRestarts       *prometheus.CounterVec
}

// New creates the instruments and registers them with registerer. A
// nil registerer returns nil metrics.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}

	m := &Metrics{
		linesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "lines_read_total",
			Help:      "Complete lines read from the serial device",
		}),
		framesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "frames_parsed_total",
			Help:      "Lines accepted by the line protocol parser",
		}),
		linesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "lines_rejected_total",
			Help:      "Lines rejected, by violated rule",
		}, []string{"rule"}),
		messagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_published_total",
			Help:      "Messages published to the hub, by message type",
		}, []string{"type"}),
		hubDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "dropped_total",
			Help:      "Messages evicted from a lagging subscriber's queue",
		}),
		serialConnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "connects_total",
			Help:      "Successful opens of the serial device",
		}),
		serialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "failures_total",
			Help:      "Serial device failures, by operation (open, read)",
		}, []string{"op"}),
		serialState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "serial",
			Name:      "state",
			Help:      "Ingest loop state: 0 closed, 1 opening, 2 reading",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "subscribers",
			Help:      "Currently connected subscribers",
		}),
		subscriberConnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "subscriber_connections_total",
			Help:      "Subscriber connections accepted",
		}),
		subscriberLeaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "subscriber_disconnections_total",
			Help:      "Subscriber disconnections, by reason",
		}, []string{"reason"}),
		unitRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "restarts_total",
			Help:      "Unit restarts, by unit",
		}, []string{"unit"}),
	}

	registerer.MustRegister(
		m.linesRead,
		m.framesParsed,
		m.linesRejected,
		m.messagesPublished,
		m.hubDrops,
		m.serialConnects,
		m.serialFailures,
		m.serialState,
		m.subscribers,
		m.subscriberConnects,
		m.subscriberLeaves,
		m.unitRestarts,
	)
	return m
}

func (m *Metrics) LineRead() {
	if m != nil {
		m.linesRead.Inc()
	}
}

func (m *Metrics) FrameParsed() {
	if m != nil {
		m.framesParsed.Inc()
	}
}

// LineRejected counts a line that did not become a frame. rule is a
// parser rule name or a line-assembly reason (line_too_long,
// invalid_utf8).
func (m *Metrics) LineRejected(rule string) {
	if m != nil {
		m.linesRejected.WithLabelValues(rule).Inc()
	}
}

func (m *Metrics) MessagePublished(messageType string) {
	if m != nil {
		m.messagesPublished.WithLabelValues(messageType).Inc()
	}
}

func (m *Metrics) HubDropped() {
	if m != nil {
		m.hubDrops.Inc()
	}
}

func (m *Metrics) SerialConnected() {
	if m != nil {
		m.serialConnects.Inc()
	}
}

// SerialFailed counts a failed open or read.
func (m *Metrics) SerialFailed(op string) {
	if m != nil {
		m.serialFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) SetSerialState(state int) {
	if m != nil {
		m.serialState.Set(float64(state))
	}
}

func (m *Metrics) SubscriberConnected() {
	if m != nil {
		m.subscriberConnects.Inc()
		m.subscribers.Inc()
	}
}

func (m *Metrics) SubscriberDisconnected(reason string) {
	if m != nil {
		m.subscriberLeaves.WithLabelValues(reason).Inc()
		m.subscribers.Dec()
	}
}

func (m *Metrics) UnitRestarted(unit string) {
	if m != nil {
		m.unitRestarts.WithLabelValues(unit).Inc()
	}
}
