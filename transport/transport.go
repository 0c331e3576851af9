// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "context"

// Transport establishes connections to a chat server.
type Transport interface {
	// Open dials the server at url and returns an established
	// connection. Blocks until the connection is established or ctx
	// is done.
	Open(ctx context.Context, url string) (Conn, error)
}

// Conn is one established server connection. Send and Close may be
// called concurrently with a blocked Receive; Receive must only be
// called from a single goroutine.
type Conn interface {
	// Send transmits one payload. An error reports a transmission
	// failure, not a delivery failure — the protocol has no
	// acknowledgments.
	Send(data []byte) error

	// Receive blocks until the next inbound payload arrives. Returns
	// an error when the connection is closed, locally or by the peer.
	Receive() ([]byte, error)

	// Close tears the connection down. Idempotent: closing an already
	// closed connection returns nil. A blocked Receive unblocks with
	// an error.
	Close() error
}
