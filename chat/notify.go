// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

// Notifier receives presentation-only notices from the core: toasts,
// status-bar flashes, log lines. Calls are fire-and-forget and must
// not block; implementations that do slow work should hand off to
// their own goroutine or queue.
type Notifier interface {
	// Connected fires when the connection is established, including
	// after a successful reconnect.
	Connected()
	// Disconnected fires when an established connection is lost or
	// deliberately closed.
	Disconnected()
	// ConnectionError fires on a transport failure or on reaching the
	// terminal Failed state. Informational: the reconnection policy
	// has already engaged (or given up) by the time this fires.
	ConnectionError(err error)
	// RoomCreated fires when the local user creates a room.
	RoomCreated(room Room)
}

// NopNotifier discards all notices. Used when no presentation layer is
// attached, and as the default when Config.Notifier is nil.
type NopNotifier struct{}

func (NopNotifier) Connected()                {}
func (NopNotifier) Disconnected()             {}
func (NopNotifier) ConnectionError(err error) {}
func (NopNotifier) RoomCreated(room Room)     {}
