// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	chatctl "github.com/openclaw/openclaw-tui/internal/chat"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// streamChunkMsg carries one streamed delta into the update loop.
type streamChunkMsg struct {
	messageID string
	full      string
}

// streamDoneMsg signals a completed response.
type streamDoneMsg struct {
	messageID string
}

// streamErrMsg signals a failed or cancelled response.
type streamErrMsg struct {
	messageID string
	err       error
}

// storageWarnMsg reports a persistence failure the session survived.
type storageWarnMsg struct {
	err error
}

// updateStagedMsg reports that a newer build is waiting.
type updateStagedMsg struct{}

// statusClearMsg expires a transient status line. The text guards against
// clearing a newer message.
type statusClearMsg struct {
	text string
}

// =============================================================================
// EVENT BRIDGE
// =============================================================================

// Controller hooks fire on the stream goroutine; Bubble Tea consumes
// messages on its own loop. The bridge is a buffered channel drained by a
// re-arming command.

// hooks adapts controller callbacks into channel sends.
func (m *Model) hooks() chatctl.Hooks {
	return chatctl.Hooks{
		OnChunk: func(id, _, full string) {
			m.events <- streamChunkMsg{messageID: id, full: full}
		},
		OnDone: func(id, _ string) {
			m.events <- streamDoneMsg{messageID: id}
		},
		OnError: func(id string, err error) {
			m.events <- streamErrMsg{messageID: id, err: err}
		},
		OnStorageWarn: func(err error) {
			m.events <- storageWarnMsg{err: err}
		},
	}
}

// waitForEvent returns a command that delivers the next bridged event.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// waitForUpdate returns a command that delivers the staged-update signal,
// or nothing if the watcher is absent.
func (m *Model) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-m.updates; ok {
			return updateStagedMsg{}
		}
		return nil
	}
}
