// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleError marks a terminal failure surfaced in place of an assistant
	// reply. Error messages are never sent back to the API.
	RoleError Role = "error"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleError:
		return "Error"
	default:
		return string(r)
	}
}

// Sendable reports whether messages with this role participate in the
// context window sent to the API.
func (r Role) Sendable() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Messages are immutable once committed, with one exception: a streaming
// assistant placeholder (Streaming == true) has its Content grown in place
// until it is finalized or replaced by an error-role message.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"ts"`

	// Attachments holds filename references only; file bodies never enter
	// the store.
	Attachments []string `json:"files,omitempty"`

	// Streaming marks the in-progress assistant placeholder.
	Streaming bool `json:"streaming,omitempty"`
}

// NewMessage creates a committed message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID("m"),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message with attachment name references.
func NewUserMessage(content string, attachments []string) *Message {
	msg := NewMessage(RoleUser, content)
	msg.Attachments = attachments
	return msg
}

// NewStreamingMessage creates an empty assistant placeholder.
func NewStreamingMessage() *Message {
	return &Message{
		ID:        generateID("s"),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		Streaming: true,
	}
}

// NewErrorMessage creates an error-role message.
func NewErrorMessage(content string) *Message {
	return NewMessage(RoleError, content)
}

// SetStreamContent replaces the placeholder content with the accumulated
// stream text. Content only ever grows; callers pass the full accumulated
// text, never a delta.
func (m *Message) SetStreamContent(full string) {
	if m.Streaming {
		m.Content = full
	}
}

// =============================================================================
// PROMPT MESSAGE
// =============================================================================

// PromptMessage is the wire-shaped {role, content} pair sent to the API.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique prefixed message/conversation ID.
func generateID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
