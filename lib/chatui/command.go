// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "strings"

// commandKind identifies what the composer input asks for.
type commandKind int

const (
	// cmdMessage is plain message text (no leading slash).
	cmdMessage commandKind = iota
	// cmdMarkdown sends the argument as a formatted message (/md).
	cmdMarkdown
	// cmdJoin switches to a known room by ID (/join).
	cmdJoin
	// cmdCreate creates and joins a new room (/create).
	cmdCreate
	// cmdRooms lists the known rooms in the status bar (/rooms).
	cmdRooms
	// cmdQuit logs out and exits (/quit).
	cmdQuit
	// cmdUnknown is an unrecognized slash command.
	cmdUnknown
)

// command is a parsed composer submission.
type command struct {
	kind commandKind
	// arg is the message text, room ID, room name, or the unrecognized
	// command word, depending on kind.
	arg string
}

// parseCommand interprets a composer submission. Input starting with
// "/" is a slash command; everything else is message text, passed
// through verbatim so the session layer owns whitespace validation.
func parseCommand(input string) command {
	if !strings.HasPrefix(strings.TrimSpace(input), "/") {
		return command{kind: cmdMessage, arg: input}
	}

	trimmed := strings.TrimSpace(input)
	word, rest, _ := strings.Cut(trimmed, " ")
	rest = strings.TrimSpace(rest)

	switch word {
	case "/md":
		return command{kind: cmdMarkdown, arg: rest}
	case "/join":
		return command{kind: cmdJoin, arg: rest}
	case "/create":
		return command{kind: cmdCreate, arg: rest}
	case "/rooms":
		return command{kind: cmdRooms}
	case "/quit":
		return command{kind: cmdQuit}
	default:
		return command{kind: cmdUnknown, arg: word}
	}
}
