// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

// timeFormat is the display timestamp layout carried in messages.
// Arrival order, not this wall-clock string, is the authoritative
// ordering of a room's history.
const timeFormat = "15:04"

// SystemSender is the sender label of client-synthesized messages.
const SystemSender = "system"

// User is the logged-in identity. Created on login, immutable for the
// session lifetime, discarded on logout.
type User struct {
	ID       string
	Username string
}

// Room is one named channel in the known room set.
type Room struct {
	ID   string
	Name string
	// Members is the server-reported member count.
	Members int
}

// MessageKind distinguishes user-authored messages from
// client-synthesized system notices.
type MessageKind int

const (
	// KindUser is a message authored by a user.
	KindUser MessageKind = iota
	// KindSystem is a client-synthesized notice (welcome, join).
	KindSystem
)

// Message is one entry in a room's history.
type Message struct {
	// ID is unique within the room's history and is the key for
	// duplicate suppression.
	ID     string
	Text   string
	Sender string
	RoomID string
	// Timestamp is a display string (timeFormat), not an ordering key.
	Timestamp string
	Kind      MessageKind
	// Formatted marks Text as lightweight markup to be rendered by
	// the presentation layer.
	Formatted bool
}
