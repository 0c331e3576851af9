// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/parley-im/parley/chat"
)

// connectedMsg reports that the connection reached the connected state.
type connectedMsg struct{}

// disconnectedMsg reports a deliberate disconnect.
type disconnectedMsg struct{}

// connectionFailedMsg reports that the reconnection policy gave up.
type connectionFailedMsg struct {
	err error
}

// roomCreatedMsg reports a locally created room.
type roomCreatedMsg struct {
	room chat.Room
}

// ProgramNotifier adapts [chat.Notifier] callbacks into bubbletea
// messages. The controller invokes the callbacks from its event pump
// goroutine; program.Send is the one bubbletea entry point that is
// safe from there.
//
// The notifier must be created before the program starts (it is part
// of the controller's configuration, which is needed to build the
// model). Call SetProgram once the tea.Program exists; notices arriving
// before that are dropped, which only loses notices fired before the
// UI is on screen.
type ProgramNotifier struct {
	program atomic.Pointer[tea.Program]
}

var _ chat.Notifier = (*ProgramNotifier)(nil)

// SetProgram sets the bubbletea program that receives notices. Safe to
// call from any goroutine.
func (n *ProgramNotifier) SetProgram(program *tea.Program) {
	n.program.Store(program)
}

func (n *ProgramNotifier) send(msg tea.Msg) {
	if program := n.program.Load(); program != nil {
		program.Send(msg)
	}
}

// Connected implements chat.Notifier.
func (n *ProgramNotifier) Connected() { n.send(connectedMsg{}) }

// Disconnected implements chat.Notifier.
func (n *ProgramNotifier) Disconnected() { n.send(disconnectedMsg{}) }

// ConnectionError implements chat.Notifier.
func (n *ProgramNotifier) ConnectionError(err error) { n.send(connectionFailedMsg{err: err}) }

// RoomCreated implements chat.Notifier.
func (n *ProgramNotifier) RoomCreated(room chat.Room) { n.send(roomCreatedMsg{room: room}) }
