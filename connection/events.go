// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package connection

import "github.com/parley-im/parley/wire"

// State is the connection lifecycle state.
type State int

const (
	// StateDisconnected means no connection exists and none is being
	// attempted. The initial state, and the result of Disconnect.
	StateDisconnected State = iota
	// StateConnecting means the initial dial is in flight.
	StateConnecting
	// StateConnected means frames can be sent and received.
	StateConnected
	// StateReconnecting means the connection was lost or a dial
	// failed, and a retry is scheduled or in flight. Status.Attempt
	// carries the consecutive-failure count.
	StateReconnecting
	// StateFailed is terminal: the attempt ceiling was exceeded.
	// Requires an explicit Connect to leave.
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of the connection state. Attempt
// is the consecutive-failure count, meaningful in StateReconnecting
// and StateFailed, zero otherwise.
type Status struct {
	State   State
	Attempt int
}

// Event is something the Manager reports to its subscriber. The set of
// implementations is closed: [StateChange], [Inbound], and
// [TransportError].
type Event interface {
	connectionEvent()
}

// StateChange reports a state machine transition.
type StateChange struct {
	Status Status
}

func (StateChange) connectionEvent() {}

// Inbound delivers one successfully decoded frame from the server.
type Inbound struct {
	Frame wire.Frame
}

func (Inbound) connectionEvent() {}

// TransportError reports an I/O failure on an established connection.
// It is informational: the Manager has already begun its reconnection
// policy (or transitioned to Failed) by the time the subscriber sees
// it. Never fatal to the process.
type TransportError struct {
	Err error
}

func (TransportError) connectionEvent() {}
