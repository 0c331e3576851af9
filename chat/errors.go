// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by SendMessage when the session is not in a
// state to transmit: not logged in, no current room, or the connection
// is not established. Recoverable — retry once connected.
var ErrNotReady = errors.New("chat: not ready to send")

// ErrAlreadyLoggedIn is returned by Login when a session is active.
var ErrAlreadyLoggedIn = errors.New("chat: already logged in")

// ValidationReason classifies why an input was rejected.
type ValidationReason string

const (
	// ReasonEmpty means the value was empty or whitespace.
	ReasonEmpty ValidationReason = "empty"
	// ReasonTooShort means the value was below the minimum length.
	ReasonTooShort ValidationReason = "too-short"
	// ReasonTooLong means the value exceeded the maximum length.
	ReasonTooLong ValidationReason = "too-long"
)

// ValidationError reports a rejected input. Callers can use errors.As
// to extract the structured reason:
//
//	var validationErr *chat.ValidationError
//	if errors.As(err, &validationErr) {
//	    if validationErr.Reason == chat.ReasonTooShort { ... }
//	}
type ValidationError struct {
	// Field names the rejected input ("username", "room name", "message").
	Field string
	// Reason is the rejection code.
	Reason ValidationReason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("chat: invalid %s: %s", e.Field, e.Reason)
}

// IsValidation checks whether err is a *ValidationError with the given
// reason.
func IsValidation(err error, reason ValidationReason) bool {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Reason == reason
	}
	return false
}

// UnknownRoomError reports a join of a room that is not in the known
// room set. Recoverable: the room may appear in a later room_update.
type UnknownRoomError struct {
	RoomID string
}

func (e *UnknownRoomError) Error() string {
	return fmt.Sprintf("chat: unknown room %q", e.RoomID)
}
