// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the JSON frame format spoken between the chat
// client and the server, as a closed set of typed variants.
//
// Every frame is a JSON object carrying a "type" discriminator. Decode
// maps the discriminator to one of the [Frame] implementations —
// [ChatMessage], [JoinRoom], or [RoomUpdate] — and rejects anything
// else with [*MalformedFrameError]. There is no dynamic, shape-assumed
// payload handling: an unknown or unparseable frame is an error value
// the caller can log and drop, never a panic.
//
// The field names (id, text, sender, room, timestamp, isFormattedText,
// userId, username, users) are the protocol's wire contract and must
// not change.
package wire
