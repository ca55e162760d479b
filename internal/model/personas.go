// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// PERSONA REGISTRY
// =============================================================================

// Persona binds a display identity to the system prompt sent with every
// request in a conversation.
type Persona struct {
	ID     string
	Name   string
	Icon   string
	Prompt string
}

// DefaultPersonaID is used for new conversations and unknown persona lookups.
const DefaultPersonaID = "assistant"

// personas is the fixed registry, in display order.
var personas = []Persona{
	{
		ID:     "assistant",
		Name:   "Assistant",
		Icon:   "🤖",
		Prompt: "You are a helpful, harmless, and honest AI assistant.",
	},
	{
		ID:     "coder",
		Name:   "Code Expert",
		Icon:   "💻",
		Prompt: "You are an expert software engineer. Provide clean, well-documented code with explanations.",
	},
	{
		ID:     "analyst",
		Name:   "Data Analyst",
		Icon:   "📊",
		Prompt: "You are a data analyst. Provide clear insights with structured analysis.",
	},
	{
		ID:     "creative",
		Name:   "Creative Writer",
		Icon:   "✨",
		Prompt: "You are a creative writer. Engage with imagination and vivid language.",
	},
	{
		ID:     "tutor",
		Name:   "Tutor",
		Icon:   "🎓",
		Prompt: "You are a patient tutor. Explain concepts step by step with examples.",
	},
}

// Personas returns the registry in display order.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

// PersonaByID returns the persona for the given ID, falling back to the
// default persona when the ID is unknown.
func PersonaByID(id string) Persona {
	for _, p := range personas {
		if p.ID == id {
			return p
		}
	}
	return PersonaByID(DefaultPersonaID)
}
