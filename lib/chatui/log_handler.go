// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a slog record to the model for display in the
// status bar. Only records at or above the handler's configured level
// are delivered.
type logRecordMsg struct {
	// Summary is the human-readable one-line message for the status bar.
	Summary string

	// Level is the slog level for styling (warn vs error).
	Level slog.Level
}

// noticeFadeMsg is sent after a delay to clear the status bar notice
// and restore the normal help text.
type noticeFadeMsg struct{}

// noticeFadeDelay is how long notices stay visible in the status bar
// before fading back to the keyboard help line.
const noticeFadeDelay = 5 * time.Second

// LogHandler is a slog.Handler that routes log records into a
// bubbletea program as messages, so background warnings (dropped
// frames, reconnect failures) show in the status bar instead of
// writing to stderr and corrupting the alt-screen display.
//
// Call SetProgram once the tea.Program is created; records arriving
// before that are dropped. Handlers derived via WithAttrs/WithGroup
// share the same program pointer, so a single SetProgram call
// propagates to every derived handler.
type LogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
}

// NewLogHandler creates a handler that delivers records at or above
// the given level to the bubbletea program.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{
		level:   level,
		program: &atomic.Pointer[tea.Program]{},
	}
}

// SetProgram sets the bubbletea program that receives log messages.
// Safe to call from any goroutine.
func (handler *LogHandler) SetProgram(program *tea.Program) {
	handler.program.Store(program)
}

// Enabled reports whether the handler is interested in records at the
// given level.
func (handler *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record as "message (key=value, ...)" and sends it
// to the bubbletea program.
func (handler *LogHandler) Handle(_ context.Context, record slog.Record) error {
	program := handler.program.Load()
	if program == nil {
		return nil
	}

	summary := record.Message
	var attrParts []string
	for _, attr := range handler.attrs {
		attrParts = append(attrParts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrParts = append(attrParts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
		return true
	})
	if len(attrParts) > 0 {
		summary += " ("
		for index, part := range attrParts {
			if index > 0 {
				summary += ", "
			}
			summary += part
		}
		summary += ")"
	}

	program.Send(logRecordMsg{Summary: summary, Level: record.Level})
	return nil
}

// WithAttrs returns a new handler with the given attributes appended.
// The derived handler shares the same atomic program pointer.
func (handler *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(handler.attrs)+len(attrs))
	merged = append(merged, handler.attrs...)
	merged = append(merged, attrs...)
	return &LogHandler{
		level:   handler.level,
		program: handler.program,
		attrs:   merged,
	}
}

// WithGroup returns the handler unchanged. Status-bar summaries are
// flat; group qualification adds noise without aiding a chat user.
func (handler *LogHandler) WithGroup(string) slog.Handler {
	return handler
}
