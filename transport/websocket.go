// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single websocket write. A peer that stops
// draining its receive buffer must not wedge the sender forever.
const writeTimeout = 10 * time.Second

// closeGracePeriod is how long Close waits for the close handshake
// write before tearing down the underlying socket.
const closeGracePeriod = time.Second

// WebSocket is a Transport over gorilla/websocket. The zero value uses
// websocket.DefaultDialer.
type WebSocket struct {
	// Dialer overrides the websocket dialer. Nil means
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Open implements Transport.
func (t *WebSocket) Open(ctx context.Context, url string) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	socket, response, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("transport: dialing %s: handshake rejected with status %d: %w", url, response.StatusCode, err)
		}
		return nil, fmt.Errorf("transport: dialing %s: %w", url, err)
	}
	return &wsConn{socket: socket}, nil
}

// wsConn wraps a gorilla connection. Gorilla permits at most one
// concurrent writer, so Send and Close serialize on writeMu.
type wsConn struct {
	socket  *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

func (c *wsConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return fmt.Errorf("transport: send on closed connection")
	}
	c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("transport: writing frame: %w", err)
	}
	return nil
}

func (c *wsConn) Receive() ([]byte, error) {
	_, data, err := c.socket.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("transport: reading frame: %w", err)
	}
	return data, nil
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	// Best-effort close handshake; the peer may already be gone.
	deadline := time.Now().Add(closeGracePeriod)
	c.socket.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.socket.Close()
}
