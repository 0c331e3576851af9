// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/parley-im/parley/chat"
	"github.com/parley-im/parley/connection"
)

// screen identifies which top-level view is active.
type screen int

const (
	// screenLogin shows the username form.
	screenLogin screen = iota
	// screenChat shows the room sidebar, message pane, and composer.
	screenChat
)

// refreshInterval drives the periodic snapshot re-read. Inbound chat
// messages land in the controller's store from its pump goroutine;
// the tick is what makes them visible without a per-message
// notification channel.
const refreshInterval = 250 * time.Millisecond

// sidebarWidth is the fixed column width of the room list.
const sidebarWidth = 24

// refreshMsg triggers a re-read of the controller snapshot.
type refreshMsg struct{}

// Model is the bubbletea model for the Parley TUI.
type Model struct {
	controller *chat.Controller
	theme      Theme

	screen   screen
	username textinput.Model
	loginErr string

	composer    textinput.Model
	messagePane viewport.Model
	markdown    *markdownRenderer

	// notice is the transient status bar message; empty shows help text.
	notice      string
	noticeLevel slog.Level

	width  int
	height int
	ready  bool
}

// NewModel creates a Model showing the login form.
func NewModel(controller *chat.Controller, theme Theme) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = chat.UsernameMaxLength
	username.Width = 30
	username.Focus()

	composer := textinput.New()
	composer.Placeholder = "message (/join, /create, /rooms, /md, /quit)"
	composer.Prompt = "> "

	return Model{
		controller: controller,
		theme:      theme,
		username:   username,
		composer:   composer,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, refreshTick())
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func noticeFade() tea.Cmd {
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{}
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.controller.Logout()
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		return m.updateChat(msg)

	case refreshMsg:
		if m.screen == screenChat {
			m.syncMessagePane()
		}
		return m, refreshTick()

	case connectedMsg:
		return m.setNotice("connected", slog.LevelInfo)
	case disconnectedMsg:
		return m.setNotice("disconnected", slog.LevelInfo)
	case connectionFailedMsg:
		return m.setNotice(fmt.Sprintf("connection failed: %v", msg.err), slog.LevelError)
	case roomCreatedMsg:
		return m.setNotice(fmt.Sprintf("created room %q", msg.room.Name), slog.LevelInfo)

	case logRecordMsg:
		return m.setNotice(msg.Summary, msg.Level)
	case noticeFadeMsg:
		m.notice = ""
		return m, nil
	}

	// Cursor blinks and other component messages.
	var cmd tea.Cmd
	if m.screen == screenLogin {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.composer, cmd = m.composer.Update(msg)
	}
	return m, cmd
}

func (m Model) setNotice(text string, level slog.Level) (tea.Model, tea.Cmd) {
	m.notice = text
	m.noticeLevel = level
	return m, noticeFade()
}

func (m *Model) setSize(width, height int) {
	m.width = width
	m.height = height
	m.ready = width > 0 && height > 0

	paneWidth := width - sidebarWidth - 3
	paneHeight := height - 4
	if paneWidth < 1 {
		paneWidth = 1
	}
	if paneHeight < 1 {
		paneHeight = 1
	}
	if m.messagePane.Width == 0 && m.messagePane.Height == 0 {
		m.messagePane = viewport.New(paneWidth, paneHeight)
	} else {
		m.messagePane.Width = paneWidth
		m.messagePane.Height = paneHeight
	}
	m.composer.Width = width - 4

	if renderer, err := newMarkdownRenderer(paneWidth); err == nil {
		m.markdown = renderer
	}
	if m.screen == screenChat {
		m.syncMessagePane()
	}
}

// updateLogin handles keys on the login screen.
func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		if _, err := m.controller.Login(m.username.Value()); err != nil {
			m.loginErr = loginErrorText(err)
			return m, nil
		}
		m.loginErr = ""
		m.screen = screenChat
		m.username.Blur()
		m.composer.Focus()
		m.syncMessagePane()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.username, cmd = m.username.Update(msg)
	return m, cmd
}

// loginErrorText maps session errors to user-facing form feedback.
func loginErrorText(err error) string {
	switch {
	case chat.IsValidation(err, chat.ReasonEmpty):
		return "username must not be empty"
	case chat.IsValidation(err, chat.ReasonTooShort):
		return fmt.Sprintf("username must be at least %d characters", chat.UsernameMinLength)
	case chat.IsValidation(err, chat.ReasonTooLong):
		return fmt.Sprintf("username must be at most %d characters", chat.UsernameMaxLength)
	default:
		return err.Error()
	}
}

// updateChat handles keys on the chat screen.
func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.submitComposer()
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.messagePane, cmd = m.messagePane.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// submitComposer executes the composer content as a command or message.
func (m Model) submitComposer() (tea.Model, tea.Cmd) {
	input := m.composer.Value()
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	m.composer.SetValue("")

	parsed := parseCommand(input)
	switch parsed.kind {
	case cmdQuit:
		m.controller.Logout()
		return m, tea.Quit

	case cmdRooms:
		var names []string
		for _, room := range m.controller.Rooms() {
			names = append(names, fmt.Sprintf("%s (%d)", room.ID, room.Members))
		}
		return m.setNotice("rooms: "+strings.Join(names, ", "), slog.LevelInfo)

	case cmdJoin:
		if parsed.arg == "" {
			return m.setNotice("usage: /join <room-id>", slog.LevelWarn)
		}
		if err := m.controller.JoinRoom(parsed.arg); err != nil {
			return m.setNotice(err.Error(), slog.LevelWarn)
		}
		m.syncMessagePane()
		return m, nil

	case cmdCreate:
		if parsed.arg == "" {
			return m.setNotice("usage: /create <room name>", slog.LevelWarn)
		}
		if _, err := m.controller.CreateRoom(parsed.arg); err != nil {
			return m.setNotice(err.Error(), slog.LevelWarn)
		}
		m.syncMessagePane()
		return m, nil

	case cmdUnknown:
		return m.setNotice(fmt.Sprintf("unknown command %s", parsed.arg), slog.LevelWarn)

	case cmdMarkdown, cmdMessage:
		formatted := parsed.kind == cmdMarkdown
		if _, err := m.controller.SendMessage(parsed.arg, formatted); err != nil {
			return m.setNotice(sendErrorText(err), slog.LevelWarn)
		}
		m.syncMessagePane()
		return m, nil
	}
	return m, nil
}

// sendErrorText maps send failures to status bar feedback.
func sendErrorText(err error) string {
	switch {
	case chat.IsValidation(err, chat.ReasonEmpty):
		return "cannot send an empty message"
	default:
		return err.Error()
	}
}

// syncMessagePane re-renders the current room's history into the
// viewport. Called on every refresh tick; the controller's accessors
// return cheap snapshot copies, so re-rendering is simpler and safer
// than diffing against the pump goroutine's mutations.
func (m *Model) syncMessagePane() {
	room, ok := m.controller.CurrentRoom()
	if !ok {
		m.messagePane.SetContent("")
		return
	}

	atBottom := m.messagePane.AtBottom()
	var lines []string
	for _, message := range m.controller.Messages(room.ID) {
		lines = append(lines, m.renderMessage(message))
	}
	m.messagePane.SetContent(strings.Join(lines, "\n"))
	if atBottom {
		m.messagePane.GotoBottom()
	}
}

// renderMessage produces one (possibly multi-line) row of the message
// pane.
func (m *Model) renderMessage(message chat.Message) string {
	if message.Kind == chat.KindSystem {
		style := lipgloss.NewStyle().Foreground(m.theme.SystemText).Italic(true)
		return style.Render("· " + message.Text)
	}

	senderColor := m.theme.RemoteSender
	if user, ok := m.controller.CurrentUser(); ok && message.Sender == user.Username {
		senderColor = m.theme.SelfSender
	}
	timestamp := lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(message.Timestamp)
	sender := lipgloss.NewStyle().Foreground(senderColor).Bold(true).Render(message.Sender)

	body := message.Text
	if message.Formatted {
		body = m.markdown.render(body)
	}
	return fmt.Sprintf("%s %s: %s", timestamp, sender, body)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.screen == screenLogin {
		return m.viewLogin()
	}
	return m.viewChat()
}

func (m Model) viewLogin() string {
	title := lipgloss.NewStyle().
		Foreground(m.theme.HeaderForeground).
		Bold(true).
		Render("Parley")
	prompt := lipgloss.NewStyle().
		Foreground(m.theme.NormalText).
		Render("Choose a username to join the chat.")
	form := m.username.View()

	errorLine := ""
	if m.loginErr != "" {
		errorLine = lipgloss.NewStyle().
			Foreground(m.theme.ErrorText).
			Render(m.loginErr)
	}
	help := lipgloss.NewStyle().
		Foreground(m.theme.HelpText).
		Render("enter: join · ctrl+c: quit")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.BorderColor).
		Padding(1, 3).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, "", prompt, "", form, errorLine, "", help))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) viewChat() string {
	header := m.viewHeader()
	sidebar := m.viewSidebar()
	pane := m.messagePane.View()
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", pane)
	composer := m.composer.View()
	status := m.viewStatusBar()
	return lipgloss.JoinVertical(lipgloss.Left, header, main, composer, status)
}

func (m Model) viewHeader() string {
	name := "Parley"
	if user, ok := m.controller.CurrentUser(); ok {
		name = fmt.Sprintf("Parley — %s", user.Username)
	}
	left := lipgloss.NewStyle().
		Foreground(m.theme.HeaderForeground).
		Bold(true).
		Render(name)

	right := m.connectionLabel()
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// connectionLabel renders the connection state indicator.
func (m Model) connectionLabel() string {
	status := m.controller.ConnectionStatus()
	var color lipgloss.Color
	label := status.State.String()
	switch status.State {
	case connection.StateConnected:
		color = m.theme.StatusConnected
	case connection.StateConnecting, connection.StateReconnecting:
		color = m.theme.StatusReconnecting
		if status.State == connection.StateReconnecting {
			label = fmt.Sprintf("reconnecting %d/%d", status.Attempt, m.controller.MaxReconnectAttempts())
		}
	case connection.StateFailed:
		color = m.theme.StatusFailed
		label = "offline"
	default:
		color = m.theme.FaintText
	}
	return lipgloss.NewStyle().Foreground(color).Render("● " + label)
}

func (m Model) viewSidebar() string {
	current, hasCurrent := m.controller.CurrentRoom()

	header := lipgloss.NewStyle().
		Foreground(m.theme.HeaderForeground).
		Bold(true).
		Width(sidebarWidth).
		Render("Rooms")
	lines := []string{header}

	rowStyle := lipgloss.NewStyle().
		Foreground(m.theme.NormalText).
		Width(sidebarWidth)
	currentStyle := lipgloss.NewStyle().
		Foreground(m.theme.CurrentRoomForeground).
		Background(m.theme.CurrentRoomBackground).
		Bold(true).
		Width(sidebarWidth)

	for _, room := range m.controller.Rooms() {
		row := fmt.Sprintf("%s (%d)", room.Name, room.Members)
		if hasCurrent && room.ID == current.ID {
			lines = append(lines, currentStyle.Render("▸ "+row))
		} else {
			lines = append(lines, rowStyle.Render("  "+row))
		}
	}

	return lipgloss.NewStyle().
		Height(m.messagePane.Height).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(m.theme.BorderColor).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) viewStatusBar() string {
	if m.notice != "" {
		color := m.theme.FaintText
		switch {
		case m.noticeLevel >= slog.LevelError:
			color = m.theme.ErrorText
		case m.noticeLevel >= slog.LevelWarn:
			color = m.theme.StatusReconnecting
		}
		return lipgloss.NewStyle().Foreground(color).Render(m.notice)
	}
	return lipgloss.NewStyle().
		Foreground(m.theme.HelpText).
		Render("enter: send · /join /create /rooms /md /quit · pgup/pgdn: scroll · ctrl+c: quit")
}
