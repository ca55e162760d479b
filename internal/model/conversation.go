// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/openclaw/openclaw-tui/internal/util"
)

// TitleMaxLen is the maximum length of a derived conversation title, in
// runes, before the ellipsis is appended.
const TitleMaxLen = 45

// DefaultTitle is used until a first user message provides one.
const DefaultTitle = "New Conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds an ordered message log with metadata.
//
// The message sequence is append-only; the only removal operation is
// deletion of the whole conversation.
type Conversation struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	PersonaID    string     `json:"persona"`
	Messages     []*Message `json:"msgs"`
	LastActivity time.Time  `json:"at"`
}

// NewConversation creates an empty conversation for the given persona.
func NewConversation(personaID string) *Conversation {
	return &Conversation{
		ID:           generateID("c"),
		Title:        DefaultTitle,
		PersonaID:    personaID,
		Messages:     make([]*Message, 0),
		LastActivity: time.Now(),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message and refreshes LastActivity. The title is derived
// from the first user message, truncated for display.
func (c *Conversation) Append(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.LastActivity = time.Now()

	if len(c.Messages) == 1 && msg.Role == RoleUser {
		c.Title = DeriveTitle(msg.Content)
	}
}

// Last returns the most recent message, or nil if empty.
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Window returns the trailing n sendable messages as prompt pairs, oldest of
// the window first. Error-role messages are excluded; older messages beyond
// the window stay in storage but are never sent.
func (c *Conversation) Window(n int) []PromptMessage {
	sendable := make([]*Message, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if msg.Role.Sendable() && !msg.Streaming {
			sendable = append(sendable, msg)
		}
	}

	if len(sendable) > n {
		sendable = sendable[len(sendable)-n:]
	}

	window := make([]PromptMessage, 0, len(sendable))
	for _, msg := range sendable {
		window = append(window, PromptMessage{Role: msg.Role.String(), Content: msg.Content})
	}
	return window
}

// Snapshot returns the conversation as it should be persisted. A streaming
// placeholder is session state, not history, so it is omitted; once
// finalized it appears in the next snapshot.
func (c *Conversation) Snapshot() *Conversation {
	inFlight := false
	for _, msg := range c.Messages {
		if msg.Streaming {
			inFlight = true
			break
		}
	}
	if !inFlight {
		return c
	}

	out := *c
	out.Messages = make([]*Message, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if !msg.Streaming {
			out.Messages = append(out.Messages, msg)
		}
	}
	return &out
}

// MessageCount returns the number of messages in the conversation.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// DeriveTitle builds a conversation title from message content: first line,
// truncated to TitleMaxLen runes with an ellipsis.
func DeriveTitle(content string) string {
	title := strings.TrimSpace(util.FirstLine(content))
	if title == "" {
		return DefaultTitle
	}
	return util.TruncateRunes(title, TitleMaxLen)
}
