// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat is the client core: a room-partitioned message store and
// the session controller that orchestrates identity, room membership,
// and the connection lifecycle.
//
// The package provides two core types. [Store] owns per-room ordered
// message history with idempotent, duplicate-safe appends — replaying
// the same frame twice yields exactly one stored message, and repeated
// join notices inside a short suppression window coalesce into one.
// [Controller] owns the session state machine (logged out / logged in),
// validates logins, routes inbound frames from the connection manager
// into the store, and performs optimistic local appends for outbound
// messages using the same identifier that goes on the wire, so the
// server's echo is recognized as a duplicate rather than double-counted.
//
// All mutations funnel through the Controller's mutex: the connection
// manager's event channel is drained by a single pump goroutine, and
// presentation code calls the public operations. Presentation reads
// ([Controller.Messages], [Controller.Rooms], [Controller.CurrentRoom],
// [Controller.ConnectionStatus]) return snapshots; nothing outside this
// package mutates core state.
//
// Error taxonomy: [*ValidationError] for bad input (synchronous,
// recoverable), [*UnknownRoomError] for joins of rooms not in the known
// set, [ErrNotReady] for operations attempted in the wrong state, and
// [ErrAlreadyLoggedIn]. Transport failures never surface here as hard
// errors — they drive the connection manager's reconnection policy and
// reach the [Notifier] as fire-and-forget notices. No condition in this
// package is fatal to the process.
package chat
