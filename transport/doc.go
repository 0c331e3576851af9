// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport abstracts the byte-level connection to the chat
// server.
//
// The package defines two interfaces: [Transport] establishes outbound
// connections (Open), and [Conn] is one established connection (Send,
// Receive, Close). The connection manager owns reconnection policy and
// frame decoding; transport implementations move opaque payloads and
// nothing else.
//
// The production implementation, [WebSocket], uses gorilla/websocket
// text frames. Tests substitute in-memory fakes — the connection
// manager's state machine is exercised without a network.
package transport
