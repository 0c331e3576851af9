// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  command
	}{
		{"plain message", "hello there", command{kind: cmdMessage, arg: "hello there"}},
		{"message preserves whitespace", "  padded  ", command{kind: cmdMessage, arg: "  padded  "}},
		{"join", "/join support", command{kind: cmdJoin, arg: "support"}},
		{"join trims argument", "/join  support ", command{kind: cmdJoin, arg: "support"}},
		{"join without argument", "/join", command{kind: cmdJoin, arg: ""}},
		{"create", "/create Book Club", command{kind: cmdCreate, arg: "Book Club"}},
		{"rooms", "/rooms", command{kind: cmdRooms}},
		{"quit", "/quit", command{kind: cmdQuit}},
		{"markdown", "/md **bold** move", command{kind: cmdMarkdown, arg: "**bold** move"}},
		{"unknown command", "/frobnicate now", command{kind: cmdUnknown, arg: "/frobnicate"}},
		{"leading spaces before slash", "  /rooms", command{kind: cmdRooms}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := parseCommand(test.input)
			if got != test.want {
				t.Errorf("parseCommand(%q) = %+v, want %+v", test.input, got, test.want)
			}
		})
	}
}
