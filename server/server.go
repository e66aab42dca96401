// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"

	"github.com/ambient-works-jp/water-controller/hub"
	"github.com/ambient-works-jp/water-controller/lib/clock"
	"github.com/ambient-works-jp/water-controller/metrics"
	"github.com/ambient-works-jp/water-controller/supervisor"
	"github.com/ambient-works-jp/water-controller/wire"
)

const shutdownTimeout = 5 * time.Second

// Config holds the server's settings and dependencies.
type Config struct {
	// Address is the host:port to listen on.
	Address string
	// Path serves the event stream. Default: /ws.
	Path string

	PingInterval time.Duration
	WriteTimeout time.Duration

	Hub *hub.Hub[wire.Event]

	// SerialState reports the ingest loop's state for /healthz. Optional.
	SerialState func() string

	// MetricsHandler, if set, is served at /metrics.
	MetricsHandler http.Handler

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Server accepts subscribers and streams hub events to them.
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	connections sync.WaitGroup
	connected   atomic.Int64
	nextID      atomic.Uint64
}

// New validates config and returns a server ready to Run.
func New(config Config) (*Server, error) {
	if config.Hub == nil {
		return nil, errors.New("server: hub is required")
	}
	if config.Path == "" {
		config.Path = "/ws"
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 15 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{wire.SubprotocolJSON, wire.SubprotocolCBOR},
			// Subscribers are dashboards on the local network; there is
			// no authentication boundary to protect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: config.Logger,
	}, nil
}

// Subscribers returns the number of connected subscribers.
func (s *Server) Subscribers() int {
	return int(s.connected.Load())
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleStream)
	// Plain HTTP endpoints are gzipped for clients that accept it. The
	// stream path is not: gzhttp would buffer the upgrade handshake.
	mux.Handle("/healthz", gzhttp.GzipHandler(http.HandlerFunc(s.handleHealth)))
	if s.config.MetricsHandler != nil {
		mux.Handle("/metrics", gzhttp.GzipHandler(s.config.MetricsHandler))
	}
	return mux
}

// Run listens on the configured address and serves until ctx is
// cancelled. An address that can never be bound (bad host or port
// syntax, unresolvable name) is returned as a supervisor.Fatal error;
// other listen failures are returned plainly so the supervisor retries.
func (s *Server) Run(ctx context.Context) error {
	var listenConfig net.ListenConfig
	listener, err := listenConfig.Listen(ctx, "tcp", s.config.Address)
	if err != nil {
		err = fmt.Errorf("listening on %s: %w", s.config.Address, err)
		if isPermanentListenError(err) {
			return supervisor.Fatal(err)
		}
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled, then shuts down:
// the listener is closed, every live subscriber connection is closed,
// and Serve waits for their handlers to return.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	// Connection handlers derive from connectionCtx, so cancelling it
	// ends every subscriber even when the accept loop fails on its own.
	connectionCtx, cancelConnections := context.WithCancel(ctx)
	defer cancelConnections()

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return connectionCtx },
	}

	s.logger.Info("subscriber server listening",
		"address", listener.Addr().String(),
		"path", s.config.Path,
	)

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(listener) }()

	select {
	case err := <-serveErr:
		cancelConnections()
		s.connections.Wait()
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown incomplete", "error", err)
	}
	// Hijacked WebSocket connections are not tracked by Shutdown; their
	// handlers exit when their base context ends.
	cancelConnections()
	s.connections.Wait()
	s.logger.Info("subscriber server stopped")
	return nil
}

func isPermanentListenError(err error) bool {
	var dnsError *net.DNSError
	if errors.As(err, &dnsError) {
		return dnsError.IsNotFound
	}
	var addrError *net.AddrError
	return errors.As(err, &addrError)
}

type health struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
	Serial      string `json:"serial,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := health{Status: "ok", Subscribers: s.Subscribers()}
	if s.config.SerialState != nil {
		report.Serial = s.config.SerialState()
		if report.Serial != "reading" {
			report.Status = "degraded"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Debug("writing health response", "error", err)
	}
}
