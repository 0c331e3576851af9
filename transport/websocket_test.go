// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// echoServer upgrades every request and echoes text frames back until
// the client disconnects.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		socket, err := upgrader.Upgrade(writer, request, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer socket.Close()
		for {
			messageType, data, err := socket.ReadMessage()
			if err != nil {
				return
			}
			if err := socket.WriteMessage(messageType, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// wsURL rewrites an httptest server URL to the ws scheme.
func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebSocketRoundTrip(t *testing.T) {
	server := echoServer(t)

	var transport WebSocket
	conn, err := transport.Open(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	payload := []byte(`{"type":"chat_message","id":"m1","text":"hello"}`)
	if err := conn.Send(payload); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	received, err := conn.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if string(received) != string(payload) {
		t.Errorf("echo = %q, want %q", received, payload)
	}
}

func TestWebSocketOpenFailure(t *testing.T) {
	// A plain HTTP server that never upgrades.
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "no websocket here", http.StatusNotFound)
	}))
	defer server.Close()

	var transport WebSocket
	if _, err := transport.Open(context.Background(), wsURL(server)); err == nil {
		t.Fatal("expected handshake failure")
	}
}

func TestWebSocketCloseIdempotent(t *testing.T) {
	server := echoServer(t)

	var transport WebSocket
	conn, err := transport.Open(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if err := conn.Send([]byte("late")); err == nil {
		t.Fatal("Send after Close succeeded")
	}
}

func TestWebSocketReceiveUnblocksOnClose(t *testing.T) {
	server := echoServer(t)

	var transport WebSocket
	conn, err := transport.Open(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	errs := make(chan error, 1)
	go func() {
		_, err := conn.Receive()
		errs <- err
	}()

	conn.Close()
	if err := <-errs; err == nil {
		t.Fatal("Receive returned nil after Close")
	}
}
