// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer wraps a glamour renderer bound to one wrap width.
// Glamour renderers are not resizable, so the model replaces this on
// every window size change.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// newMarkdownRenderer builds a renderer for formatted message bodies.
// The dark style is fixed rather than auto-detected: auto-detection
// queries the terminal, which misbehaves under bubbletea's alt screen
// and in tests with no TTY.
func newMarkdownRenderer(width int) (*markdownRenderer, error) {
	if width < 1 {
		width = 1
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	return &markdownRenderer{width: width, renderer: renderer}, nil
}

// render converts markup to styled terminal text. Glamour pads output
// with a blank margin line above and below; those are stripped so a
// one-line formatted message occupies one row like a plain one. On
// render failure the raw text is returned, never an empty pane.
func (m *markdownRenderer) render(text string) string {
	if m == nil || m.renderer == nil {
		return text
	}
	rendered, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}
