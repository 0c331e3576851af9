// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/parley-im/parley/connection"
	"github.com/parley-im/parley/lib/clock"
	"github.com/parley-im/parley/transport"
	"github.com/parley-im/parley/wire"
)

// Username length bounds.
const (
	UsernameMinLength = 3
	UsernameMaxLength = 20
)

// GeneralRoomID is the room every session starts in.
const GeneralRoomID = "general"

// defaultRooms is the room set known before the first room_update
// arrives. Matches the reference client's seed list.
func defaultRooms() []Room {
	return []Room{
		{ID: "general", Name: "General", Members: 5},
		{ID: "support", Name: "Support", Members: 2},
		{ID: "random", Name: "Random", Members: 8},
	}
}

// Config holds parameters for creating a Controller.
type Config struct {
	// ServerURL is the chat server address. Required.
	ServerURL string
	// Transport dials the server. Required.
	Transport transport.Transport
	// Clock drives timestamps, the join suppression window, and the
	// reconnect timer. If nil, clock.Real() is used.
	Clock clock.Clock
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Notifier receives presentation notices. If nil, notices are discarded.
	Notifier Notifier
	// RetryDelay is the fixed interval between reconnect attempts. If
	// zero, connection.DefaultRetryDelay is used.
	RetryDelay time.Duration
	// MaxAttempts is the consecutive-failure ceiling before the
	// connection parks in its terminal failed state. If zero,
	// connection.DefaultMaxAttempts is used.
	MaxAttempts int
}

// Controller is the session orchestrator: it owns the current user and
// the known room set, creates a connection manager on login, and wires
// connection events into Store mutations.
//
// All state lives in one Controller instance — nothing is process-wide
// — so multiple sessions in one process cannot bleed into each other.
// Controller is safe for concurrent use: public operations serialize
// on an internal mutex, and connection events are drained by a single
// pump goroutine that funnels into the same mutex.
type Controller struct {
	serverURL   string
	transport   transport.Transport
	clock       clock.Clock
	logger      *slog.Logger
	notifier    Notifier
	store       *Store
	retryDelay  time.Duration
	maxAttempts int

	mu       sync.Mutex
	user     *User
	rooms    []Room
	conn     *connection.Manager
	pumpQuit chan struct{}
}

// NewController creates a logged-out Controller.
func NewController(config Config) (*Controller, error) {
	if config.ServerURL == "" {
		return nil, fmt.Errorf("chat: ServerURL is required")
	}
	if config.Transport == nil {
		return nil, fmt.Errorf("chat: Transport is required")
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := config.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	retryDelay := config.RetryDelay
	if retryDelay == 0 {
		retryDelay = connection.DefaultRetryDelay
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = connection.DefaultMaxAttempts
	}

	return &Controller{
		serverURL:   config.ServerURL,
		transport:   config.Transport,
		clock:       clk,
		logger:      logger,
		notifier:    notifier,
		store:       NewStore(clk),
		retryDelay:  retryDelay,
		maxAttempts: maxAttempts,
	}, nil
}

// validateUsername enforces the login rules: non-empty after trimming,
// rune length within [UsernameMinLength, UsernameMaxLength].
func validateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	switch {
	case trimmed == "":
		return &ValidationError{Field: "username", Reason: ReasonEmpty}
	case utf8.RuneCountInString(trimmed) < UsernameMinLength:
		return &ValidationError{Field: "username", Reason: ReasonTooShort}
	case utf8.RuneCountInString(trimmed) > UsernameMaxLength:
		return &ValidationError{Field: "username", Reason: ReasonTooLong}
	}
	return nil
}

// Login validates the username, creates the session identity, starts
// the connection manager, and lands the user in the general room with
// a welcome notice. A validation failure leaves the Controller exactly
// as it was.
func (c *Controller) Login(username string) (User, error) {
	if err := validateUsername(username); err != nil {
		return User{}, err
	}
	username = strings.TrimSpace(username)

	c.mu.Lock()
	if c.user != nil {
		c.mu.Unlock()
		return User{}, ErrAlreadyLoggedIn
	}

	conn, err := connection.NewManager(connection.Config{
		URL:         c.serverURL,
		Transport:   c.transport,
		Clock:       c.clock,
		Logger:      c.logger,
		RetryDelay:  c.retryDelay,
		MaxAttempts: c.maxAttempts,
	})
	if err != nil {
		c.mu.Unlock()
		return User{}, fmt.Errorf("chat: creating connection manager: %w", err)
	}

	user := User{ID: "user_" + uuid.NewString(), Username: username}
	c.user = &user
	c.rooms = defaultRooms()
	c.conn = conn
	c.pumpQuit = make(chan struct{})
	go c.pump(conn, c.pumpQuit)

	c.store.EnsureRoom(GeneralRoomID)
	c.store.AppendIfNew(GeneralRoomID, Message{
		ID:        uuid.NewString(),
		Text:      fmt.Sprintf("Welcome to the chat, %s!", username),
		Sender:    SystemSender,
		RoomID:    GeneralRoomID,
		Timestamp: c.clock.Now().Format(timeFormat),
		Kind:      KindSystem,
	})
	general, _ := c.roomLocked(GeneralRoomID)
	announcement := c.joinLocked(general)
	c.mu.Unlock()

	c.announce(conn, announcement)
	c.logger.Info("logged in", "user_id", user.ID, "username", user.Username)
	conn.Connect()
	return user, nil
}

// JoinRoom makes roomID the current room. The room must be in the
// known set; histories of previously visited rooms are untouched.
func (c *Controller) JoinRoom(roomID string) error {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return ErrNotReady
	}
	room, ok := c.roomLocked(roomID)
	if !ok {
		c.mu.Unlock()
		return &UnknownRoomError{RoomID: roomID}
	}
	announcement := c.joinLocked(room)
	conn := c.conn
	c.mu.Unlock()

	c.announce(conn, announcement)
	return nil
}

// joinLocked performs the local join side effects: history creation,
// the current-room switch, and a suppressed join notice. It returns
// the membership announcement for the caller to transmit after
// releasing the lock — a transport write can block for the full write
// deadline and must never happen under c.mu.
func (c *Controller) joinLocked(room Room) wire.JoinRoom {
	c.store.EnsureRoom(room.ID)
	c.store.SetCurrentRoom(room.ID)
	c.store.RecordJoin(room.ID, c.user.ID, fmt.Sprintf("You joined the %s room", room.Name))
	return wire.JoinRoom{
		Room:     room.ID,
		UserID:   c.user.ID,
		Username: c.user.Username,
	}
}

// announce transmits a membership announcement. A connection that is
// not up yet is fine: membership is re-announced on every connect.
func (c *Controller) announce(conn *connection.Manager, frame wire.JoinRoom) {
	if conn == nil {
		return
	}
	if err := conn.Send(frame); err != nil && !errors.Is(err, connection.ErrNotConnected) {
		c.logger.Warn("join announcement failed", "room_id", frame.Room, "error", err)
	}
}

// CreateRoom allocates a new room, adds it to the known set, and joins
// it. The known set only grows here; the server's next room_update
// replaces it wholesale.
func (c *Controller) CreateRoom(name string) (Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Room{}, &ValidationError{Field: "room name", Reason: ReasonEmpty}
	}

	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return Room{}, ErrNotReady
	}

	room := Room{ID: "room_" + uuid.NewString(), Name: name, Members: 1}
	c.rooms = append(c.rooms, room)
	announcement := c.joinLocked(room)
	conn := c.conn
	c.mu.Unlock()

	c.announce(conn, announcement)
	c.logger.Info("room created", "room_id", room.ID, "name", room.Name)
	c.notifier.RoomCreated(room)
	return room, nil
}

// SendMessage appends text to the current room optimistically and
// transmits it. The local copy and the wire frame share one message
// ID, so the server's echo deduplicates instead of double-counting.
// Returns ErrNotReady unless logged in, in a room, and connected.
func (c *Controller) SendMessage(text string, formatted bool) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, &ValidationError{Field: "message", Reason: ReasonEmpty}
	}

	c.mu.Lock()
	roomID := c.store.CurrentRoom()
	if c.user == nil || roomID == "" || c.conn == nil ||
		c.conn.Status().State != connection.StateConnected {
		c.mu.Unlock()
		return Message{}, ErrNotReady
	}

	message := Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    c.user.Username,
		RoomID:    roomID,
		Timestamp: c.clock.Now().Format(timeFormat),
		Kind:      KindUser,
		Formatted: formatted,
	}
	c.store.AppendIfNew(roomID, message)
	conn := c.conn
	c.mu.Unlock()

	// Transmit outside the lock: a slow peer can block the write for
	// the transport's full write deadline, and the session must stay
	// responsive meanwhile.
	err := conn.Send(wire.ChatMessage{
		ID:        message.ID,
		Text:      message.Text,
		Sender:    message.Sender,
		Room:      message.RoomID,
		Timestamp: message.Timestamp,
		Formatted: message.Formatted,
	})
	if err != nil {
		if errors.Is(err, connection.ErrNotConnected) {
			// The connection dropped between the state check and the
			// send. The optimistic append stands; the caller retries
			// once reconnected.
			return message, ErrNotReady
		}
		return message, err
	}
	return message, nil
}

// Logout disconnects (cancelling any pending reconnect), clears every
// history, and returns to the logged-out state. Idempotent.
func (c *Controller) Logout() {
	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	quit := c.pumpQuit
	user := *c.user
	c.user = nil
	c.rooms = nil
	c.conn = nil
	c.pumpQuit = nil
	c.mu.Unlock()

	conn.Disconnect()
	close(quit)
	c.store.ClearAll()
	c.logger.Info("logged out", "user_id", user.ID)
}

// pump drains the connection manager's event channel for the lifetime
// of one login. It is the single consumer required by the manager, and
// the only path from transport goroutines into session state.
func (c *Controller) pump(conn *connection.Manager, quit <-chan struct{}) {
	for {
		select {
		case event := <-conn.Events():
			c.handleEvent(event)
		case <-quit:
			return
		}
	}
}

// handleEvent routes one connection event into session and store
// mutations, then fires any presentation notices outside the lock.
func (c *Controller) handleEvent(event connection.Event) {
	switch event := event.(type) {
	case connection.StateChange:
		c.handleStateChange(event.Status)
	case connection.Inbound:
		c.handleFrame(event.Frame)
	case connection.TransportError:
		c.notifier.ConnectionError(event.Err)
	}
}

func (c *Controller) handleStateChange(status connection.Status) {
	switch status.State {
	case connection.StateConnected:
		// Re-announce membership in the current room so the server
		// re-registers us after a reconnect. The join suppression
		// window absorbs any notice the server echoes back.
		var conn *connection.Manager
		var rejoin wire.JoinRoom
		c.mu.Lock()
		if c.user != nil && c.conn != nil {
			if room, ok := c.roomLocked(c.store.CurrentRoom()); ok {
				conn = c.conn
				rejoin = wire.JoinRoom{
					Room:     room.ID,
					UserID:   c.user.ID,
					Username: c.user.Username,
				}
			}
		}
		c.mu.Unlock()
		c.announce(conn, rejoin)
		c.notifier.Connected()
	case connection.StateDisconnected:
		c.notifier.Disconnected()
	case connection.StateFailed:
		c.notifier.ConnectionError(fmt.Errorf(
			"chat: connection failed after %d attempts; reconnect or log in again", status.Attempt))
	}
}

// handleFrame applies one inbound frame. chat_message appends with
// duplicate suppression, join_room synthesizes a join notice, and
// room_update replaces the known room set wholesale — never a partial
// merge.
func (c *Controller) handleFrame(frame wire.Frame) {
	switch frame := frame.(type) {
	case wire.ChatMessage:
		kind := KindUser
		if frame.Sender == SystemSender {
			kind = KindSystem
		}
		c.store.AppendIfNew(frame.Room, Message{
			ID:        frame.ID,
			Text:      frame.Text,
			Sender:    frame.Sender,
			RoomID:    frame.Room,
			Timestamp: frame.Timestamp,
			Kind:      kind,
			Formatted: frame.Formatted,
		})

	case wire.JoinRoom:
		c.mu.Lock()
		var text string
		if c.user != nil && frame.UserID == c.user.ID {
			name := frame.Room
			if room, ok := c.roomLocked(frame.Room); ok {
				name = room.Name
			}
			text = fmt.Sprintf("You joined the %s room", name)
		} else {
			text = fmt.Sprintf("%s joined the room", frame.Username)
		}
		c.mu.Unlock()
		c.store.RecordJoin(frame.Room, frame.UserID, text)

	case wire.RoomUpdate:
		rooms := make([]Room, 0, len(frame.Rooms))
		for _, info := range frame.Rooms {
			rooms = append(rooms, Room{ID: info.ID, Name: info.Name, Members: info.Members})
		}
		c.mu.Lock()
		if c.user != nil {
			c.rooms = rooms
		}
		c.mu.Unlock()
	}
}

// roomLocked looks roomID up in the known set. Caller holds c.mu.
func (c *Controller) roomLocked(roomID string) (Room, bool) {
	for _, room := range c.rooms {
		if room.ID == roomID {
			return room, true
		}
	}
	return Room{}, false
}

// CurrentUser returns the logged-in user, reporting false when logged
// out.
func (c *Controller) CurrentUser() (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

// Rooms returns a snapshot of the known room set.
func (c *Controller) Rooms() []Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Room(nil), c.rooms...)
}

// CurrentRoom returns the active room, reporting false before any join.
func (c *Controller) CurrentRoom() (Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomLocked(c.store.CurrentRoom())
}

// ConnectionStatus returns the connection state, Disconnected when
// logged out.
func (c *Controller) ConnectionStatus() connection.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return connection.Status{State: connection.StateDisconnected}
	}
	return c.conn.Status()
}

// MaxReconnectAttempts returns the consecutive-failure ceiling the
// connection gives up at, with defaults resolved. Presentation uses it
// for "reconnecting n/m" style indicators.
func (c *Controller) MaxReconnectAttempts() int {
	return c.maxAttempts
}

// Messages returns a snapshot of roomID's history in arrival order.
func (c *Controller) Messages(roomID string) []Message {
	return c.store.Messages(roomID)
}
