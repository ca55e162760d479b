// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	chatctl "github.com/openclaw/openclaw-tui/internal/chat"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update processes Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case streamChunkMsg:
		// Content is already in the message; refresh and re-arm the bridge.
		m.refreshViewport(true)
		cmds = append(cmds, m.waitForEvent())

	case streamDoneMsg:
		m.streaming = false
		m.streamingMsgID = ""
		m.statusMsg = ""
		m.refreshViewport(true)
		cmds = append(cmds, m.waitForEvent())

	case streamErrMsg:
		m.streaming = false
		m.streamingMsgID = ""
		if errors.Is(msg.err, context.Canceled) {
			m.statusMsg = "Cancelled."
		} else {
			m.statusMsg = "Response failed."
		}
		m.refreshViewport(true)
		cmds = append(cmds, m.waitForEvent())

	case storageWarnMsg:
		m.statusMsg = "Warning: changes are not being saved."
		cmds = append(cmds, m.waitForEvent())

	case updateStagedMsg:
		m.updateAvailable = true

	case statusClearMsg:
		if m.statusMsg == msg.text {
			m.statusMsg = ""
		}
	}

	// Forward remaining events to the focused components.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// resize applies a new terminal geometry.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	chrome := headerHeight + inputHeight + statusHeight
	vpHeight := height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 6
	m.ready = true

	m.rebuildRenderer()
	m.refreshViewport(false)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKey processes shortcuts before the input widget sees them.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keyMap.Cancel):
		if m.streaming {
			m.ctrl.Cancel()
			return nil, true
		}
		return nil, false

	case key.Matches(msg, m.keyMap.Send):
		return m.submit(), true

	case key.Matches(msg, m.keyMap.NewConv):
		if _, err := m.ctrl.NewConversation(m.activePersonaID()); err != nil {
			m.statusMsg = statusForError(err)
		} else {
			m.statusMsg = "Started a new conversation."
			m.refreshViewport(false)
		}
		return nil, true

	case key.Matches(msg, m.keyMap.NextConv):
		m.cycleConversation()
		return nil, true

	case key.Matches(msg, m.keyMap.ScrollUp):
		m.viewport.HalfViewUp()
		return nil, true

	case key.Matches(msg, m.keyMap.ScrollDn):
		m.viewport.HalfViewDown()
		return nil, true
	}
	return nil, false
}

// submit dispatches the input line, either a slash command or a send.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" && len(m.pending) == 0 {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runCommand(text)
	}

	err := m.ctrl.Send(context.Background(), text, m.pending, m.hooks())
	if err != nil {
		m.statusMsg = statusForError(err)
		m.refreshViewport(false)

		// Rate-limit notices expire on their own once the window opens.
		var limited *chatctl.RateLimitError
		if errors.As(err, &limited) {
			notice := m.statusMsg
			return tea.Tick(limited.Wait, func(time.Time) tea.Msg {
				return statusClearMsg{text: notice}
			})
		}
		return nil
	}

	m.input.Reset()
	m.pending = nil
	m.streaming = true
	m.statusMsg = ""
	m.refreshViewport(true)
	return m.spinner.Tick
}

// cycleConversation switches to the next conversation by recency.
func (m *Model) cycleConversation() {
	convos := m.store.List()
	if len(convos) < 2 {
		m.statusMsg = "No other conversations."
		return
	}

	active, err := m.store.Active()
	if err != nil {
		m.statusMsg = statusForError(err)
		return
	}
	for i, conv := range convos {
		if conv.ID == active.ID {
			next := convos[(i+1)%len(convos)]
			if err := m.ctrl.Switch(next.ID); err != nil {
				m.statusMsg = statusForError(err)
				return
			}
			m.statusMsg = fmt.Sprintf("Switched to %q.", next.Title)
			m.refreshViewport(false)
			return
		}
	}
}

// activePersonaID returns the active conversation's persona for reuse in
// new conversations.
func (m *Model) activePersonaID() string {
	if conv, err := m.store.Active(); err == nil {
		return conv.PersonaID
	}
	return ""
}

// =============================================================================
// ERROR PRESENTATION
// =============================================================================

// statusForError maps controller rejections to status line text.
func statusForError(err error) string {
	var blocked *chatctl.BlockedError
	var limited *chatctl.RateLimitError

	switch {
	case errors.Is(err, chatctl.ErrBusy):
		return "Wait for the current response to finish (esc cancels)."
	case errors.Is(err, chatctl.ErrEmptyMessage):
		return "Nothing to send."
	case errors.Is(err, chatctl.ErrNoCredential):
		return "No API key set. Use /key sk-ant-..."
	case errors.As(err, &blocked):
		return "Message blocked by the input screen."
	case errors.As(err, &limited):
		return fmt.Sprintf("Rate limit reached. Try again in %v.", limited.Wait)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
