// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the chat TUI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Sender name colors.
	SelfSender   lipgloss.Color
	RemoteSender lipgloss.Color

	// System notices (welcome, joins).
	SystemText lipgloss.Color

	// Room sidebar.
	CurrentRoomForeground lipgloss.Color
	CurrentRoomBackground lipgloss.Color

	// Connection state indicator.
	StatusConnected    lipgloss.Color
	StatusReconnecting lipgloss.Color
	StatusFailed       lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	ErrorText        lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelfSender:   lipgloss.Color("75"),  // blue
	RemoteSender: lipgloss.Color("114"), // green

	SystemText: lipgloss.Color("141"), // light purple

	CurrentRoomForeground: lipgloss.Color("255"),
	CurrentRoomBackground: lipgloss.Color("236"),

	StatusConnected:    lipgloss.Color("114"), // green
	StatusReconnecting: lipgloss.Color("220"), // yellow/amber
	StatusFailed:       lipgloss.Color("196"), // red

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	ErrorText:        lipgloss.Color("196"),
}
