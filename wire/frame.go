// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"fmt"
)

// Frame type discriminators.
const (
	TypeChatMessage = "chat_message"
	TypeJoinRoom    = "join_room"
	TypeRoomUpdate  = "room_update"
)

// Frame is a decoded transport frame. The set of implementations is
// closed: ChatMessage, JoinRoom, and RoomUpdate. Anything else on the
// wire decodes to a *MalformedFrameError instead of a Frame.
type Frame interface {
	// FrameType returns the frame's wire discriminator.
	FrameType() string
}

// ChatMessage carries one chat message to or from a room.
type ChatMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Room      string `json:"room"`
	Timestamp string `json:"timestamp"`
	Formatted bool   `json:"isFormattedText,omitempty"`
}

// FrameType implements Frame.
func (ChatMessage) FrameType() string { return TypeChatMessage }

// JoinRoom announces that a user joined a room.
type JoinRoom struct {
	Room     string `json:"room"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// FrameType implements Frame.
func (JoinRoom) FrameType() string { return TypeJoinRoom }

// RoomInfo is one room entry in a RoomUpdate.
type RoomInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Members is the server's member count for the room. The wire
	// name "users" comes from the original protocol.
	Members int `json:"users"`
}

// RoomUpdate replaces the client's known room list wholesale. Partial
// merges are not part of the protocol.
type RoomUpdate struct {
	Rooms []RoomInfo `json:"rooms"`
}

// FrameType implements Frame.
func (RoomUpdate) FrameType() string { return TypeRoomUpdate }

// MalformedFrameError reports an inbound payload that could not be
// decoded into a known frame variant. It is recoverable: the
// connection layer logs and drops the frame.
type MalformedFrameError struct {
	// FrameType is the "type" value found in the payload, empty when
	// the payload was not valid JSON or carried no type at all.
	FrameType string
	// Err is the underlying JSON error, nil for unknown types.
	Err error
}

func (e *MalformedFrameError) Error() string {
	if e.FrameType != "" && e.Err == nil {
		return fmt.Sprintf("wire: unknown frame type %q", e.FrameType)
	}
	return fmt.Sprintf("wire: malformed frame: %v", e.Err)
}

func (e *MalformedFrameError) Unwrap() error { return e.Err }

// envelope is the partial decode used to read the discriminator before
// committing to a variant.
type envelope struct {
	Type string `json:"type"`
}

// Decode parses an inbound payload into its frame variant. A payload
// that is not a JSON object, carries no "type", carries an unknown
// type, or fails variant decoding returns *MalformedFrameError.
func Decode(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &MalformedFrameError{Err: err}
	}

	switch env.Type {
	case TypeChatMessage:
		var frame ChatMessage
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, &MalformedFrameError{FrameType: env.Type, Err: err}
		}
		return frame, nil
	case TypeJoinRoom:
		var frame JoinRoom
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, &MalformedFrameError{FrameType: env.Type, Err: err}
		}
		return frame, nil
	case TypeRoomUpdate:
		var frame RoomUpdate
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, &MalformedFrameError{FrameType: env.Type, Err: err}
		}
		return frame, nil
	default:
		return nil, &MalformedFrameError{FrameType: env.Type}
	}
}

// Encode serializes a frame with its "type" discriminator injected
// into the JSON object.
func Encode(frame Frame) ([]byte, error) {
	body, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding %s frame: %w", frame.FrameType(), err)
	}

	// Splice the discriminator into the marshaled object rather than
	// maintaining parallel tagged structs for every variant.
	var object map[string]json.RawMessage
	if err := json.Unmarshal(body, &object); err != nil {
		return nil, fmt.Errorf("wire: encoding %s frame: %w", frame.FrameType(), err)
	}
	object["type"] = json.RawMessage(fmt.Sprintf("%q", frame.FrameType()))

	data, err := json.Marshal(object)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding %s frame: %w", frame.FrameType(), err)
	}
	return data, nil
}
