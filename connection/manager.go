// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parley-im/parley/lib/clock"
	"github.com/parley-im/parley/transport"
	"github.com/parley-im/parley/wire"
)

// DefaultRetryDelay is the fixed interval between reconnect attempts.
const DefaultRetryDelay = 3 * time.Second

// DefaultMaxAttempts is the consecutive-failure ceiling. Reaching it
// transitions the Manager to the terminal Failed state.
const DefaultMaxAttempts = 5

// defaultEventBuffer sizes the event channel. The subscriber is a
// dedicated pump goroutine, so the buffer only absorbs short bursts.
const defaultEventBuffer = 64

// ErrNotConnected is returned by Send when no established connection
// exists. Recoverable: the caller retries once Connected.
var ErrNotConnected = errors.New("connection: not connected")

// Config holds parameters for creating a Manager.
type Config struct {
	// URL is the server address (e.g., "wss://chat.example.com/ws").
	URL string
	// Transport dials the server. Required.
	Transport transport.Transport
	// Clock is used for the reconnect timer. If nil, clock.Real() is used.
	Clock clock.Clock
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// RetryDelay overrides DefaultRetryDelay. Zero means the default.
	RetryDelay time.Duration
	// MaxAttempts overrides DefaultMaxAttempts. Zero means the default.
	MaxAttempts int
}

// Manager owns one transport connection at a time: connect, send,
// receive-dispatch, close, and reconnection with a fixed-interval,
// bounded-attempt policy.
//
// Manager is safe for concurrent use. Events are delivered on a single
// channel to exactly one subscriber.
type Manager struct {
	url         string
	transport   transport.Transport
	clock       clock.Clock
	logger      *slog.Logger
	retryDelay  time.Duration
	maxAttempts int

	events chan Event
	emitMu sync.Mutex // serializes channel sends so event order matches transition order

	mu         sync.Mutex
	state      State
	attempt    int // consecutive failed dials
	conn       transport.Conn
	retryTimer *clock.Timer
	dialCancel context.CancelFunc
	// generation invalidates in-flight dials, read pumps, and retry
	// timers that belong to a connection torn down by Disconnect.
	generation int
}

// NewManager creates a Manager in StateDisconnected. No connection
// attempt is made until Connect is called.
func NewManager(config Config) (*Manager, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("connection: URL is required")
	}
	if config.Transport == nil {
		return nil, fmt.Errorf("connection: Transport is required")
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retryDelay := config.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Manager{
		url:         config.URL,
		transport:   config.Transport,
		clock:       clk,
		logger:      logger,
		retryDelay:  retryDelay,
		maxAttempts: maxAttempts,
		events:      make(chan Event, defaultEventBuffer),
	}, nil
}

// Events returns the channel carrying state changes, inbound frames,
// and transport errors. Exactly one goroutine must consume it. The
// channel is never closed; the subscriber decides its own lifetime.
func (m *Manager) Events() <-chan Event { return m.events }

// Status returns a snapshot of the current connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	status := Status{State: m.state}
	if m.state == StateReconnecting || m.state == StateFailed {
		status.Attempt = m.attempt
	}
	return status
}

// Connect begins a connection attempt. No-op while a connection exists
// or an attempt is already in flight (Connecting, Connected, or
// Reconnecting — the retry machinery owns the attempt in that last
// case). From Disconnected or Failed this is a fresh start: the
// failure counter resets to zero.
func (m *Manager) Connect() {
	m.mu.Lock()
	switch m.state {
	case StateConnecting, StateConnected, StateReconnecting:
		m.mu.Unlock()
		return
	}
	m.attempt = 0
	m.state = StateConnecting
	generation := m.generation
	status := m.statusLocked()
	m.mu.Unlock()

	m.emit(StateChange{Status: status})
	go m.dial(generation)
}

// dial performs one transport open and routes the outcome into the
// state machine. Runs on its own goroutine; the Manager stays
// responsive while the transport blocks.
func (m *Manager) dial(generation int) {
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	if generation != m.generation {
		m.mu.Unlock()
		cancel()
		return
	}
	m.dialCancel = cancel
	m.mu.Unlock()

	conn, err := m.transport.Open(ctx, m.url)
	cancel()

	m.mu.Lock()
	m.dialCancel = nil
	if generation != m.generation {
		m.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		m.logger.Warn("connection attempt failed", "url", m.url, "error", err)
		m.failLocked() // unlocks
		return
	}

	m.conn = conn
	m.state = StateConnected
	m.attempt = 0
	status := m.statusLocked()
	m.mu.Unlock()

	m.logger.Info("connected", "url", m.url)
	m.emit(StateChange{Status: status})
	go m.readPump(generation, conn)
}

// readPump delivers inbound frames until the connection dies. Runs on
// its own goroutine, one per established connection.
func (m *Manager) readPump(generation int, conn transport.Conn) {
	for {
		data, err := conn.Receive()
		if err != nil {
			m.handleReadError(generation, err)
			return
		}

		frame, decodeErr := wire.Decode(data)
		if decodeErr != nil {
			// Malformed frames are dropped, never surfaced as a
			// failure: the connection itself is still healthy.
			m.logger.Warn("dropping malformed frame", "error", decodeErr)
			continue
		}
		m.emit(Inbound{Frame: frame})
	}
}

// handleReadError reacts to a dead connection discovered by the read
// pump. If the teardown was a deliberate Disconnect, the generation
// check makes this a no-op; otherwise the reconnection policy engages.
func (m *Manager) handleReadError(generation int, err error) {
	m.mu.Lock()
	if generation != m.generation || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.mu.Unlock()

	m.logger.Warn("connection lost", "url", m.url, "error", err)
	m.emit(TransportError{Err: err})

	m.mu.Lock()
	if generation != m.generation {
		m.mu.Unlock()
		return
	}
	m.failLocked() // unlocks
}

// failLocked records one more consecutive failure and either schedules
// a retry or parks in Failed. Called with mu held; releases it.
func (m *Manager) failLocked() {
	m.attempt++
	if m.attempt >= m.maxAttempts {
		m.state = StateFailed
		m.retryTimer = nil
		status := m.statusLocked()
		m.mu.Unlock()

		m.logger.Error("giving up after consecutive connection failures", "attempts", status.Attempt)
		m.emit(StateChange{Status: status})
		return
	}

	m.state = StateReconnecting
	generation := m.generation
	status := m.statusLocked()
	m.retryTimer = m.clock.AfterFunc(m.retryDelay, func() {
		m.retry(generation)
	})
	m.mu.Unlock()

	m.logger.Info("scheduling reconnect",
		"attempt", status.Attempt,
		"max_attempts", m.maxAttempts,
		"delay", m.retryDelay,
	)
	m.emit(StateChange{Status: status})
}

// retry is the reconnect timer callback. The state stays Reconnecting
// through the retry dial; only a successful open moves it forward.
func (m *Manager) retry(generation int) {
	m.mu.Lock()
	if generation != m.generation || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.retryTimer = nil
	m.mu.Unlock()

	m.dial(generation)
}

// Send encodes and transmits one outbound frame. Returns
// ErrNotConnected unless the state is Connected. A nil return means
// the frame was handed to the transport, not that the server received
// it.
func (m *Manager) Send(frame wire.Frame) error {
	m.mu.Lock()
	if m.state != StateConnected || m.conn == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	conn := m.conn
	m.mu.Unlock()

	data, err := wire.Encode(frame)
	if err != nil {
		return err
	}
	if err := conn.Send(data); err != nil {
		return fmt.Errorf("connection: sending %s frame: %w", frame.FrameType(), err)
	}
	return nil
}

// Disconnect closes the active transport if any, cancels any pending
// reconnect timer and in-flight dial, and transitions to Disconnected.
// Idempotent: calling it while already disconnected does nothing.
//
// The timer cancellation is load-bearing: without it a reconnect could
// fire after logout and resurrect a connection nobody owns.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.generation++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	conn := m.conn
	m.conn = nil
	changed := m.state != StateDisconnected
	m.state = StateDisconnected
	m.attempt = 0
	status := m.statusLocked()
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if changed {
		m.logger.Info("disconnected", "url", m.url)
		m.emit(StateChange{Status: status})
	}
}

// emit hands an event to the subscriber. Sends serialize on emitMu so
// the channel order matches the order transitions were decided in.
// If the subscriber has stopped draining (buffer full), the event is
// dropped with a warning rather than wedging the state machine.
func (m *Manager) emit(event Event) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	select {
	case m.events <- event:
	default:
		m.logger.Warn("dropping connection event, subscriber not draining", "event", fmt.Sprintf("%T", event))
	}
}
