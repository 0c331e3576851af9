// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui implements the terminal user interface for Parley.
// Built on bubbletea (Elm architecture), it provides a login form and
// a chat screen with a room sidebar, a scrolling message pane, and a
// message composer, all driven by a [chat.Controller].
//
// The controller mutates its state from its own event pump goroutine,
// outside the bubbletea loop. The TUI stays current two ways: a
// [ProgramNotifier] converts controller notices (connected, failed,
// room created) into bubbletea messages, and a periodic refresh tick
// re-reads the controller's snapshot accessors so inbound chat
// messages appear without an explicit notification per message.
//
// Data flow:
//
//	[chat server]
//	      | (connection events)
//	[chat.Controller] -- ProgramNotifier / refresh tick --> [Model]
//	      |                                                    |
//	[room histories] <------------ snapshot reads -------------+
package chatui
