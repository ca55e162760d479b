// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/openclaw/openclaw-tui/internal/model"
	"github.com/openclaw/openclaw-tui/internal/security"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// runCommand executes a slash command line.
func (m *Model) runCommand(line string) tea.Cmd {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/help":
		m.statusMsg = "Commands: /persona /model /new /list /switch /delete /reset /key /attach /clear /quit"

	case "/quit":
		return tea.Quit

	case "/new":
		persona := m.activePersonaID()
		if len(args) > 0 {
			persona = args[0]
		}
		if _, err := m.ctrl.NewConversation(model.PersonaByID(persona).ID); err != nil {
			m.statusMsg = statusForError(err)
		} else {
			m.statusMsg = "Started a new conversation."
			m.refreshViewport(false)
		}

	case "/persona":
		m.cmdPersona(args)

	case "/model":
		m.cmdModel(args)

	case "/list":
		m.cmdList()

	case "/switch":
		m.cmdSwitch(args)

	case "/delete":
		m.cmdDelete(args)

	case "/key":
		m.cmdKey(args)

	case "/attach":
		m.cmdAttach(args)

	case "/clear":
		m.pending = nil
		m.statusMsg = "Cleared staged attachments."

	case "/reset":
		if err := m.ctrl.ClearAll(); err != nil {
			m.statusMsg = statusForError(err)
		} else {
			m.statusMsg = "Deleted all conversations."
			m.refreshViewport(false)
		}

	default:
		m.statusMsg = fmt.Sprintf("Unknown command %s. Try /help.", cmd)
	}
	return nil
}

// cmdPersona lists personas or starts a conversation with one. Personas are
// fixed per conversation, so changing one means starting fresh.
func (m *Model) cmdPersona(args []string) {
	if len(args) == 0 {
		var names []string
		for _, p := range model.Personas() {
			names = append(names, p.ID)
		}
		m.statusMsg = "Personas: " + strings.Join(names, ", ") + ". Use /persona <id> for a new conversation."
		return
	}

	p := model.PersonaByID(args[0])
	if p.ID != args[0] {
		m.statusMsg = fmt.Sprintf("Unknown persona %q.", args[0])
		return
	}
	if _, err := m.ctrl.NewConversation(p.ID); err != nil {
		m.statusMsg = statusForError(err)
		return
	}
	m.statusMsg = fmt.Sprintf("New conversation with %s %s.", p.Icon, p.Name)
	m.refreshViewport(false)
}

// cmdModel lists models or selects one for subsequent sends.
func (m *Model) cmdModel(args []string) {
	if len(args) == 0 {
		var lines []string
		for _, info := range model.Models() {
			marker := " "
			if info.ID == m.ctrl.Model().ID {
				marker = "*"
			}
			lines = append(lines, fmt.Sprintf("%s %s (%s)", marker, info.Name, info.ID))
		}
		m.statusMsg = strings.Join(lines, "  ")
		return
	}

	// Accept either the full ID or a display-name prefix.
	want := strings.ToLower(args[0])
	for _, info := range model.Models() {
		if info.ID == args[0] || strings.HasPrefix(strings.ToLower(info.Name), want) {
			m.ctrl.SetModel(info.ID)
			m.statusMsg = fmt.Sprintf("Model set to %s.", info.Name)
			return
		}
	}
	m.statusMsg = fmt.Sprintf("Unknown model %q.", args[0])
}

// cmdList shows stored conversations by recency.
func (m *Model) cmdList() {
	convos := m.store.List()
	if len(convos) == 0 {
		m.statusMsg = "No conversations."
		return
	}
	var parts []string
	for i, conv := range convos {
		parts = append(parts, fmt.Sprintf("%d:%s", i+1, conv.Title))
	}
	m.statusMsg = strings.Join(parts, "  ")
}

// cmdSwitch activates a conversation by /list index.
func (m *Model) cmdSwitch(args []string) {
	conv, ok := m.conversationByIndex(args)
	if !ok {
		return
	}
	if err := m.ctrl.Switch(conv.ID); err != nil {
		m.statusMsg = statusForError(err)
		return
	}
	m.statusMsg = fmt.Sprintf("Switched to %q.", conv.Title)
	m.refreshViewport(false)
}

// cmdDelete removes a conversation by /list index.
func (m *Model) cmdDelete(args []string) {
	conv, ok := m.conversationByIndex(args)
	if !ok {
		return
	}
	if err := m.ctrl.Delete(conv.ID); err != nil {
		m.statusMsg = statusForError(err)
		return
	}
	m.statusMsg = fmt.Sprintf("Deleted %q.", conv.Title)
	m.refreshViewport(false)
}

// cmdKey stores the API credential.
func (m *Model) cmdKey(args []string) {
	if len(args) == 0 {
		if m.vault.HasCredential() {
			m.statusMsg = "An API key is configured. /key <key> replaces it."
		} else {
			m.statusMsg = "Usage: /key sk-ant-..."
		}
		return
	}

	if err := m.vault.Store(args[0], m.persistKey); err != nil {
		m.statusMsg = "That does not look like a valid API key."
		return
	}
	if m.persistKey {
		m.statusMsg = "API key saved."
	} else {
		m.statusMsg = "API key set for this session."
	}
}

// cmdAttach stages attachment name references for the next send.
func (m *Model) cmdAttach(args []string) {
	if len(args) == 0 {
		m.statusMsg = fmt.Sprintf("Staged: %s", strings.Join(m.pending, ", "))
		return
	}
	for _, name := range args {
		if len(m.pending) >= security.MaxAttachments {
			m.statusMsg = fmt.Sprintf("At most %d attachments per message.", security.MaxAttachments)
			return
		}
		m.pending = append(m.pending, name)
	}
	m.statusMsg = fmt.Sprintf("Staged %d attachment(s).", len(m.pending))
}

// conversationByIndex resolves a one-based /list index argument.
func (m *Model) conversationByIndex(args []string) (*model.Conversation, bool) {
	if len(args) == 0 {
		m.statusMsg = "Give a conversation number from /list."
		return nil, false
	}
	n, err := strconv.Atoi(args[0])
	convos := m.store.List()
	if err != nil || n < 1 || n > len(convos) {
		m.statusMsg = fmt.Sprintf("No conversation %q. See /list.", args[0])
		return nil, false
	}
	return convos[n-1], true
}
