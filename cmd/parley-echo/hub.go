// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/parley-im/parley/wire"
)

// echoRoom is one room known to the hub. Baseline is the synthetic
// member count the room starts with; live connections add to it.
type echoRoom struct {
	name     string
	baseline int
}

// seededRooms returns the default room set. The counts are synthetic:
// the hub pretends a few members are already present so the room list
// looks alive in development.
func seededRooms() (map[string]*echoRoom, []string) {
	rooms := map[string]*echoRoom{
		"general": {name: "General", baseline: 5},
		"support": {name: "Support", baseline: 2},
		"random":  {name: "Random", baseline: 8},
	}
	return rooms, []string{"general", "support", "random"}
}

// client is one websocket connection. The hub relays frames to a
// client from many reader goroutines, so writes serialize on writeMu
// (gorilla permits at most one concurrent writer).
type client struct {
	socket  *websocket.Conn
	writeMu sync.Mutex

	// Set by the first join_room frame, updated by subsequent ones.
	userID   string
	username string
	room     string
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.socket.WriteMessage(websocket.TextMessage, data)
}

// hub tracks rooms and connections and relays frames between them.
type hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu        sync.Mutex
	rooms     map[string]*echoRoom
	roomOrder []string
	clients   map[*client]struct{}
}

func newHub(logger *slog.Logger) *hub {
	rooms, order := seededRooms()
	return &hub{
		logger:    logger,
		rooms:     rooms,
		roomOrder: order,
		clients:   map[*client]struct{}{},
	}
}

// handleWebSocket upgrades the request and runs the connection's read
// loop until the peer disconnects.
func (h *hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connected := &client{socket: socket}
	h.mu.Lock()
	h.clients[connected] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("client connected", "remote", r.RemoteAddr)

	// Greet the new connection with the current room list so the
	// client's seeded defaults converge with the server's view.
	h.sendRoomUpdate(connected)

	defer func() {
		h.mu.Lock()
		delete(h.clients, connected)
		h.mu.Unlock()
		socket.Close()
		h.broadcastRoomUpdate()
		h.logger.Info("client disconnected", "remote", r.RemoteAddr)
	}()

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			return
		}
		frame, err := wire.Decode(data)
		if err != nil {
			h.logger.Warn("dropping malformed frame", "remote", r.RemoteAddr, "error", err)
			continue
		}
		h.dispatch(connected, frame)
	}
}

func (h *hub) dispatch(from *client, frame wire.Frame) {
	switch frame := frame.(type) {
	case wire.ChatMessage:
		h.relayChat(from, frame)
	case wire.JoinRoom:
		h.join(from, frame)
	case wire.RoomUpdate:
		// Room lists flow server-to-client only.
		h.logger.Warn("ignoring client room_update", "user", from.username)
	}
}

// join moves the client into the named room, registering the room if
// it is new (the client protocol has no separate create frame: joining
// an unknown room is how creation reaches the server). Every
// membership change broadcasts a fresh room list.
func (h *hub) join(from *client, frame wire.JoinRoom) {
	h.mu.Lock()
	from.userID = frame.UserID
	from.username = frame.Username
	from.room = frame.Room
	if _, ok := h.rooms[frame.Room]; !ok {
		h.rooms[frame.Room] = &echoRoom{name: frame.Room}
		h.roomOrder = append(h.roomOrder, frame.Room)
	}
	h.mu.Unlock()

	h.logger.Debug("join", "user", frame.Username, "room", frame.Room)
	h.broadcastRoomUpdate()
}

// relayChat forwards a chat message to every member of its room,
// including the sender. The echo back to the sender is deliberate: the
// client deduplicates by message ID, and development against a server
// that never echoes would leave that path untested.
func (h *hub) relayChat(from *client, frame wire.ChatMessage) {
	data, err := wire.Encode(frame)
	if err != nil {
		h.logger.Error("encoding relay frame", "error", err)
		return
	}

	h.mu.Lock()
	var members []*client
	for candidate := range h.clients {
		if candidate.room == frame.Room {
			members = append(members, candidate)
		}
	}
	h.mu.Unlock()

	h.logger.Debug("relay", "room", frame.Room, "sender", frame.Sender, "members", len(members))
	for _, member := range members {
		if err := member.write(data); err != nil {
			h.logger.Warn("relay write failed", "user", member.username, "error", err)
		}
	}
}

// roomUpdateFrame builds the room list with live member counts added
// to each room's baseline. Callers must not hold h.mu.
func (h *hub) roomUpdateFrame() wire.RoomUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()

	live := map[string]int{}
	for connected := range h.clients {
		if connected.room != "" {
			live[connected.room]++
		}
	}

	update := wire.RoomUpdate{}
	for _, id := range h.roomOrder {
		room := h.rooms[id]
		update.Rooms = append(update.Rooms, wire.RoomInfo{
			ID:      id,
			Name:    room.name,
			Members: room.baseline + live[id],
		})
	}
	return update
}

func (h *hub) sendRoomUpdate(to *client) {
	data, err := wire.Encode(h.roomUpdateFrame())
	if err != nil {
		h.logger.Error("encoding room_update", "error", err)
		return
	}
	if err := to.write(data); err != nil {
		h.logger.Warn("room_update write failed", "error", err)
	}
}

func (h *hub) broadcastRoomUpdate() {
	data, err := wire.Encode(h.roomUpdateFrame())
	if err != nil {
		h.logger.Error("encoding room_update", "error", err)
		return
	}

	h.mu.Lock()
	recipients := make([]*client, 0, len(h.clients))
	for connected := range h.clients {
		recipients = append(recipients, connected)
	}
	h.mu.Unlock()

	for _, recipient := range recipients {
		if err := recipient.write(data); err != nil {
			h.logger.Warn("room_update write failed", "user", recipient.username, "error", err)
		}
	}
}
