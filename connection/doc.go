// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package connection maintains the client's single server connection
// and its reconnection policy.
//
// [Manager] owns at most one [transport.Conn] at a time and drives the
// state machine Disconnected → Connecting → {Connected | Reconnecting…
// | Failed}. On an unexpected close, a transport error, or a failed
// dial, it schedules a retry after a fixed delay ([DefaultRetryDelay]).
// After [DefaultMaxAttempts] consecutive failures it parks in the
// terminal Failed state; only an explicit Connect call (user-triggered
// reconnect or re-login) leaves Failed. The fixed interval — not
// exponential backoff — is a deliberate choice inherited from the
// protocol's reference client.
//
// All externally visible activity is delivered as [Event] values on a
// single channel ([Manager.Events]): state changes, decoded inbound
// frames, and transport errors. Malformed inbound frames are logged
// and dropped, never delivered and never fatal. The subscriber is the
// session controller's event pump; transport read goroutines never
// touch session or store state directly.
package connection
