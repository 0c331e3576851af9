// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/parley-im/parley/connection"
	"github.com/parley-im/parley/lib/clock"
	"github.com/parley-im/parley/transport"
	"github.com/parley-im/parley/wire"
)

var sessionEpoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// stubPayload pairs data with an error for scripting stubConn.Receive.
type stubPayload struct {
	data []byte
	err  error
}

// stubConn is an in-memory transport.Conn driven by the test.
type stubConn struct {
	mu       sync.Mutex
	sent     []wire.Frame
	incoming chan stubPayload
	done     chan struct{}
	once     sync.Once
}

func newStubConn() *stubConn {
	return &stubConn{
		incoming: make(chan stubPayload, 16),
		done:     make(chan struct{}),
	}
}

func (c *stubConn) Send(data []byte) error {
	frame, err := wire.Decode(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, frame)
	return nil
}

func (c *stubConn) Receive() ([]byte, error) {
	select {
	case p := <-c.incoming:
		return p.data, p.err
	case <-c.done:
		return nil, errors.New("connection closed")
	}
}

func (c *stubConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// deliverFrame encodes and queues an inbound frame.
func (c *stubConn) deliverFrame(t *testing.T, frame wire.Frame) {
	t.Helper()
	data, err := wire.Encode(frame)
	if err != nil {
		t.Fatalf("encoding test frame: %v", err)
	}
	c.incoming <- stubPayload{data: data}
}

func (c *stubConn) sentFrames() []wire.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wire.Frame(nil), c.sent...)
}

// stubTransport scripts dial outcomes; dials beyond the script succeed.
type stubTransport struct {
	mu     sync.Mutex
	script []error
	conns  []*stubConn
	dials  int
}

func (t *stubTransport) Open(ctx context.Context, url string) (transport.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	index := t.dials
	t.dials++
	if index < len(t.script) && t.script[index] != nil {
		return nil, t.script[index]
	}
	conn := newStubConn()
	t.conns = append(t.conns, conn)
	return conn, nil
}

func (t *stubTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *stubTransport) lastConn() *stubConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

// channelNotifier exposes notices as channels for test synchronization.
type channelNotifier struct {
	connected    chan struct{}
	disconnected chan struct{}
	errs         chan error
	created      chan Room
}

func newChannelNotifier() *channelNotifier {
	return &channelNotifier{
		connected:    make(chan struct{}, 8),
		disconnected: make(chan struct{}, 8),
		errs:         make(chan error, 8),
		created:      make(chan Room, 8),
	}
}

func (n *channelNotifier) Connected()                { n.connected <- struct{}{} }
func (n *channelNotifier) Disconnected()             { n.disconnected <- struct{}{} }
func (n *channelNotifier) ConnectionError(err error) { n.errs <- err }
func (n *channelNotifier) RoomCreated(room Room)     { n.created <- room }

type sessionFixture struct {
	controller *Controller
	transport  *stubTransport
	clock      *clock.FakeClock
	notifier   *channelNotifier
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		transport: &stubTransport{},
		clock:     clock.Fake(sessionEpoch),
		notifier:  newChannelNotifier(),
	}
	controller, err := NewController(Config{
		ServerURL: "ws://chat.test/ws",
		Transport: f.transport,
		Clock:     f.clock,
		Notifier:  f.notifier,
	})
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	f.controller = controller
	t.Cleanup(controller.Logout)
	return f
}

// loginAndConnect logs in and blocks until the connection is up.
func (f *sessionFixture) loginAndConnect(t *testing.T, username string) User {
	t.Helper()
	user, err := f.controller.Login(username)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	select {
	case <-f.notifier.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Connected notice")
	}
	return user
}

// waitUntil polls condition until it holds or the deadline passes.
// Needed where a store effect follows an asynchronous inbound frame.
func waitUntil(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func countKind(messages []Message, kind MessageKind) int {
	count := 0
	for _, message := range messages {
		if message.Kind == kind {
			count++
		}
	}
	return count
}

func TestLoginValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		reason   ValidationReason
	}{
		{"empty", "", ReasonEmpty},
		{"whitespace only", "   ", ReasonEmpty},
		{"too short", "ab", ReasonTooShort},
		{"too long", "abcdefghijklmnopqrstu", ReasonTooLong},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newSessionFixture(t)
			_, err := f.controller.Login(test.username)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsValidation(err, test.reason) {
				t.Fatalf("error = %v, want reason %s", err, test.reason)
			}

			// A rejected login changes nothing.
			if _, loggedIn := f.controller.CurrentUser(); loggedIn {
				t.Fatal("user set after rejected login")
			}
			if rooms := f.controller.Rooms(); len(rooms) != 0 {
				t.Fatalf("room set after rejected login: %v", rooms)
			}
			if messages := f.controller.Messages(GeneralRoomID); messages != nil {
				t.Fatalf("history created by rejected login: %v", messages)
			}
			if f.transport.dialCount() != 0 {
				t.Fatal("rejected login dialed the server")
			}
		})
	}
}

func TestLoginLandsInGeneral(t *testing.T) {
	f := newSessionFixture(t)
	user := f.loginAndConnect(t, "alice")

	if user.Username != "alice" || user.ID == "" {
		t.Fatalf("user = %+v", user)
	}

	rooms := f.controller.Rooms()
	found := false
	for _, room := range rooms {
		if room.ID == GeneralRoomID {
			found = true
		}
	}
	if !found {
		t.Fatalf("known rooms %v missing general", rooms)
	}

	current, ok := f.controller.CurrentRoom()
	if !ok || current.ID != GeneralRoomID {
		t.Fatalf("current room = %+v, want general", current)
	}

	messages := f.controller.Messages(GeneralRoomID)
	if countKind(messages, KindSystem) < 1 {
		t.Fatalf("general history has no system message: %v", messages)
	}
}

func TestLoginTwice(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")
	if _, err := f.controller.Login("bob"); !errors.Is(err, ErrAlreadyLoggedIn) {
		t.Fatalf("second login = %v, want ErrAlreadyLoggedIn", err)
	}
}

func TestSendMessageEchoDeduplicated(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	message, err := f.controller.SendMessage("hello", false)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if message.Sender != "alice" || message.Text != "hello" {
		t.Fatalf("message = %+v", message)
	}

	history := f.controller.Messages(GeneralRoomID)
	if got := countKind(history, KindUser); got != 1 {
		t.Fatalf("user messages after send = %d, want 1", got)
	}

	// The wire frame carries the same ID as the optimistic append.
	var sentID string
	for _, frame := range f.transport.lastConn().sentFrames() {
		if chatFrame, ok := frame.(wire.ChatMessage); ok {
			sentID = chatFrame.ID
		}
	}
	if sentID != message.ID {
		t.Fatalf("wire ID %q != local ID %q", sentID, message.ID)
	}

	// The server echoes the frame back; the history must not grow.
	f.transport.lastConn().deliverFrame(t, wire.ChatMessage{
		ID: message.ID, Text: "hello", Sender: "alice",
		Room: GeneralRoomID, Timestamp: message.Timestamp,
	})
	time.Sleep(50 * time.Millisecond)
	history = f.controller.Messages(GeneralRoomID)
	if got := countKind(history, KindUser); got != 1 {
		t.Fatalf("user messages after echo = %d, want 1", got)
	}
}

func TestSendMessageNotReady(t *testing.T) {
	t.Run("logged out", func(t *testing.T) {
		f := newSessionFixture(t)
		if _, err := f.controller.SendMessage("hello", false); !errors.Is(err, ErrNotReady) {
			t.Fatalf("err = %v, want ErrNotReady", err)
		}
	})

	t.Run("connection still down", func(t *testing.T) {
		f := newSessionFixture(t)
		// Every dial fails; the session is logged in but never connected.
		f.transport.mu.Lock()
		f.transport.script = []error{errors.New("refused"), errors.New("refused")}
		f.transport.mu.Unlock()

		if _, err := f.controller.Login("alice"); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		waitUntil(t, func() bool { return f.transport.dialCount() >= 1 })

		if _, err := f.controller.SendMessage("hello", false); !errors.Is(err, ErrNotReady) {
			t.Fatalf("err = %v, want ErrNotReady", err)
		}
	})
}

func TestInboundMessageRoutedByRoom(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	// A frame for a room we have never joined still lands in that
	// room's history, not the current one.
	f.transport.lastConn().deliverFrame(t, wire.ChatMessage{
		ID: "r1", Text: "psst", Sender: "bob", Room: "random", Timestamp: "12:01",
	})
	waitUntil(t, func() bool { return len(f.controller.Messages("random")) == 1 })

	if countKind(f.controller.Messages(GeneralRoomID), KindUser) != 0 {
		t.Fatal("frame for random leaked into general")
	}
}

func TestJoinRoomUnknown(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	err := f.controller.JoinRoom("nowhere")
	var unknown *UnknownRoomError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want *UnknownRoomError", err)
	}
	if unknown.RoomID != "nowhere" {
		t.Fatalf("RoomID = %q", unknown.RoomID)
	}

	if current, _ := f.controller.CurrentRoom(); current.ID != GeneralRoomID {
		t.Fatalf("current room changed to %q", current.ID)
	}
}

func TestJoinRoomSwitchPreservesHistories(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	generalSize := len(f.controller.Messages(GeneralRoomID))
	if err := f.controller.JoinRoom("support"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	if current, _ := f.controller.CurrentRoom(); current.ID != "support" {
		t.Fatalf("current room = %q, want support", current.ID)
	}
	if got := len(f.controller.Messages(GeneralRoomID)); got != generalSize {
		t.Fatalf("general history size changed on switch: %d -> %d", generalSize, got)
	}
}

func TestJoinFloodSuppressed(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	if err := f.controller.JoinRoom("support"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if err := f.controller.JoinRoom("support"); err != nil {
		t.Fatalf("second JoinRoom failed: %v", err)
	}

	if got := countKind(f.controller.Messages("support"), KindSystem); got != 1 {
		t.Fatalf("join notices inside window = %d, want 1", got)
	}
}

func TestCreateRoomThenSend(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	room, err := f.controller.CreateRoom("dev")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.Name != "dev" || room.ID == "" {
		t.Fatalf("room = %+v", room)
	}

	select {
	case created := <-f.notifier.created:
		if created.ID != room.ID {
			t.Fatalf("RoomCreated notice for %q, want %q", created.ID, room.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no RoomCreated notice")
	}

	if _, err := f.controller.SendMessage("hi", false); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if got := countKind(f.controller.Messages(room.ID), KindUser); got != 1 {
		t.Fatalf("dev history user messages = %d, want 1", got)
	}
	if got := countKind(f.controller.Messages(GeneralRoomID), KindUser); got != 0 {
		t.Fatalf("message leaked into general: %d", got)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	if _, err := f.controller.CreateRoom("  "); !IsValidation(err, ReasonEmpty) {
		t.Fatalf("err = %v, want empty validation error", err)
	}
}

func TestRoomUpdateReplacesKnownSet(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	f.transport.lastConn().deliverFrame(t, wire.RoomUpdate{
		Rooms: []wire.RoomInfo{
			{ID: "general", Name: "General", Members: 12},
			{ID: "announcements", Name: "Announcements", Members: 40},
		},
	})

	waitUntil(t, func() bool { return len(f.controller.Rooms()) == 2 })
	rooms := f.controller.Rooms()
	// The update replaces, never merges: support and random are gone.
	for _, room := range rooms {
		if room.ID == "support" || room.ID == "random" {
			t.Fatalf("stale room %q survived room_update", room.ID)
		}
	}
	if rooms[0].Members != 12 {
		t.Fatalf("member count not taken from update: %+v", rooms[0])
	}
}

func TestRemoteJoinNotice(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	f.transport.lastConn().deliverFrame(t, wire.JoinRoom{
		Room: GeneralRoomID, UserID: "user_remote", Username: "bob",
	})
	waitUntil(t, func() bool {
		for _, message := range f.controller.Messages(GeneralRoomID) {
			if message.Kind == KindSystem && message.Text == "bob joined the room" {
				return true
			}
		}
		return false
	})
}

func TestLogout(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")
	if _, err := f.controller.SendMessage("hello", false); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	f.controller.Logout()

	if _, loggedIn := f.controller.CurrentUser(); loggedIn {
		t.Fatal("user survived logout")
	}
	if f.controller.Messages(GeneralRoomID) != nil {
		t.Fatal("history survived logout")
	}
	if got := f.controller.ConnectionStatus(); got.State != connection.StateDisconnected {
		t.Fatalf("connection state after logout = %v", got.State)
	}

	// Idempotent.
	f.controller.Logout()
}

func TestReconnectPolicyOverrides(t *testing.T) {
	tr := &stubTransport{script: []error{
		errors.New("refused"), errors.New("refused"), errors.New("refused"),
	}}
	fake := clock.Fake(sessionEpoch)
	controller, err := NewController(Config{
		ServerURL:   "ws://chat.test/ws",
		Transport:   tr,
		Clock:       fake,
		RetryDelay:  time.Minute,
		MaxAttempts: 2,
	})
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	t.Cleanup(controller.Logout)

	if got := controller.MaxReconnectAttempts(); got != 2 {
		t.Fatalf("MaxReconnectAttempts = %d, want 2", got)
	}

	if _, err := controller.Login("alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	waitUntil(t, func() bool { return tr.dialCount() == 1 })
	fake.WaitForTimers(1)

	// The built-in three-second interval must not trigger a retry when
	// a one-minute delay was configured.
	fake.Advance(3 * time.Second)
	if got := tr.dialCount(); got != 1 {
		t.Fatalf("dial count after 3s = %d, want 1 (configured delay is 1m)", got)
	}

	// The configured interval does, and the second failure hits the
	// configured ceiling of 2.
	fake.Advance(time.Minute)
	if got := tr.dialCount(); got != 2 {
		t.Fatalf("dial count after 1m = %d, want 2", got)
	}
	status := controller.ConnectionStatus()
	if status.State != connection.StateFailed || status.Attempt != 2 {
		t.Fatalf("status = %+v, want Failed at attempt 2", status)
	}

	fake.Advance(time.Hour)
	if got := tr.dialCount(); got != 2 {
		t.Fatalf("dials continued past the configured ceiling: %d", got)
	}
}

func TestMaxReconnectAttemptsDefault(t *testing.T) {
	f := newSessionFixture(t)
	if got := f.controller.MaxReconnectAttempts(); got != connection.DefaultMaxAttempts {
		t.Fatalf("MaxReconnectAttempts = %d, want %d", got, connection.DefaultMaxAttempts)
	}
}

// gatedConn blocks chat_message transmissions until the gate opens.
// Membership announcements pass straight through so login and rejoin
// are unaffected.
type gatedConn struct {
	*stubConn
	gate        chan struct{}
	sendStarted chan struct{}
	startedOnce sync.Once
}

func (c *gatedConn) Send(data []byte) error {
	frame, err := wire.Decode(data)
	if err != nil {
		return err
	}
	if _, ok := frame.(wire.ChatMessage); ok {
		c.startedOnce.Do(func() { close(c.sendStarted) })
		<-c.gate
	}
	return c.stubConn.Send(data)
}

type gatedTransport struct {
	conn *gatedConn
}

func (t *gatedTransport) Open(context.Context, string) (transport.Conn, error) {
	return t.conn, nil
}

func TestSlowSendDoesNotStallSession(t *testing.T) {
	conn := &gatedConn{
		stubConn:    newStubConn(),
		gate:        make(chan struct{}),
		sendStarted: make(chan struct{}),
	}
	notifier := newChannelNotifier()
	controller, err := NewController(Config{
		ServerURL: "ws://chat.test/ws",
		Transport: &gatedTransport{conn: conn},
		Clock:     clock.Fake(sessionEpoch),
		Notifier:  notifier,
	})
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	t.Cleanup(controller.Logout)
	var release sync.Once
	openGate := func() { release.Do(func() { close(conn.gate) }) }
	t.Cleanup(openGate)

	if _, err := controller.Login("alice"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	select {
	case <-notifier.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Connected notice")
	}

	sendResult := make(chan error, 1)
	go func() {
		_, err := controller.SendMessage("hello", false)
		sendResult <- err
	}()
	select {
	case <-conn.sendStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("transmit never reached the transport")
	}

	// While the transmit is wedged, every session operation still
	// completes: the lock must not be held across the write.
	done := make(chan struct{})
	go func() {
		controller.CurrentUser()
		controller.Rooms()
		controller.CurrentRoom()
		controller.ConnectionStatus()
		controller.Messages(GeneralRoomID)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session operations blocked behind a slow transmit")
	}

	// The optimistic append is already visible.
	if got := countKind(controller.Messages(GeneralRoomID), KindUser); got != 1 {
		t.Fatalf("user messages during blocked transmit = %d, want 1", got)
	}

	openGate()
	if err := <-sendResult; err != nil {
		t.Fatalf("SendMessage failed after gate opened: %v", err)
	}
}

func TestLogoutCancelsPendingReconnect(t *testing.T) {
	f := newSessionFixture(t)
	f.loginAndConnect(t, "alice")

	// Drop the connection; the manager schedules a retry.
	f.transport.lastConn().incoming <- stubPayload{err: errors.New("peer reset")}
	f.clock.WaitForTimers(1)

	f.controller.Logout()
	f.clock.Advance(time.Hour)

	if got := f.transport.dialCount(); got != 1 {
		t.Fatalf("dial count after logout = %d, want 1 (reconnect must not fire)", got)
	}
}
