// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/openclaw/openclaw-tui/internal/model"
	"github.com/openclaw/openclaw-tui/internal/security"
)

// Fixed chrome heights, in rows.
const (
	headerHeight = 1
	inputHeight  = 3
	statusHeight = 1
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the complete chat interface.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatus(),
	)
}

// =============================================================================
// HEADER
// =============================================================================

// renderHeader shows the app name, conversation title, persona, and model.
func (m *Model) renderHeader() string {
	title := "New Conversation"
	personaTag := ""
	if conv, err := m.store.Active(); err == nil {
		title = conv.Title
		p := model.PersonaByID(conv.PersonaID)
		personaTag = fmt.Sprintf("%s %s", p.Icon, p.Name)
	}

	left := m.theme.HeaderTitle.Render("openclaw") + "  " +
		m.theme.HeaderInfo.Render(runewidth.Truncate(title, 40, "…"))
	right := m.theme.HeaderInfo.Render(personaTag + " · " + m.ctrl.Model().Name)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// MESSAGE LOG
// =============================================================================

// refreshViewport re-renders the message log. With follow set the view
// sticks to the bottom, tracking the streaming response.
func (m *Model) refreshViewport(follow bool) {
	conv, err := m.store.Active()
	if err != nil || conv == nil {
		m.viewport.SetContent("")
		return
	}

	var b strings.Builder
	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	m.viewport.SetContent(b.String())

	if follow {
		m.viewport.GotoBottom()
	}
}

// renderMessage renders one message block with its role label.
func (m *Model) renderMessage(msg *model.Message) string {
	ts := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	var label string
	var body string
	switch msg.Role {
	case model.RoleUser:
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
		body = m.theme.MessageBody.Render(msg.Content)
	case model.RoleError:
		label = m.theme.ErrorLabel.Render(msg.Role.DisplayName())
		body = m.theme.ErrorBody.Render(msg.Content)
	default:
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		body = m.renderMarkdown(msg.Content)
		if msg.Streaming {
			if msg.Content == "" {
				body = m.spinner.View() + " thinking..."
			} else {
				body = strings.TrimRight(body, "\n") + m.theme.StreamCursor.Render("▋")
			}
		}
	}

	block := label + " " + ts + "\n" + strings.TrimRight(body, "\n") + "\n"
	if len(msg.Attachments) > 0 {
		block += m.theme.Attachment.Render("📎 "+strings.Join(msg.Attachments, ", ")) + "\n"
	}
	return block
}

// renderMarkdown renders assistant content through Glamour, falling back to
// plain text when the renderer is unavailable.
func (m *Model) renderMarkdown(content string) string {
	if m.markdown == nil || content == "" {
		return m.theme.MessageBody.Render(content)
	}
	out, err := m.markdown.Render(content)
	if err != nil {
		return m.theme.MessageBody.Render(content)
	}
	return out
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

// renderInput shows the input box with a character counter.
func (m *Model) renderInput() string {
	count := utf8.RuneCountInString(m.input.Value())
	counter := fmt.Sprintf("%d/%d", count, security.MaxInputLen)

	style := m.theme.CharCount
	if count > security.MaxInputLen*9/10 {
		style = m.theme.CharCountWarning
	}

	line := m.input.View()
	gap := m.width - lipgloss.Width(line) - lipgloss.Width(counter) - 4
	if gap < 1 {
		gap = 1
	}
	return m.theme.InputContainer.Width(m.width - 2).
		Render(line + strings.Repeat(" ", gap) + style.Render(counter))
}

// renderStatus shows shortcuts, the rate budget, and transient feedback.
func (m *Model) renderStatus() string {
	if m.statusMsg != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.statusMsg)
	}

	parts := []string{
		m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" send"),
		m.theme.ShortcutKey.Render("ctrl+n") + m.theme.ShortcutDesc.Render(" new"),
		m.theme.ShortcutKey.Render("ctrl+o") + m.theme.ShortcutDesc.Render(" switch"),
		m.theme.ShortcutKey.Render("ctrl+c") + m.theme.ShortcutDesc.Render(" quit"),
		m.theme.StatusBadge.Render(fmt.Sprintf("%d sends left", m.limiter.Remaining())),
	}
	if m.updateAvailable {
		parts = append(parts, m.theme.StatusUpdate.Render("update ready - restart to apply"))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}
