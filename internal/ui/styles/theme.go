// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style

	// Message blocks
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErrorLabel     lipgloss.Style
	MessageBody    lipgloss.Style
	ErrorBody      lipgloss.Style
	Timestamp      lipgloss.Style
	Attachment     lipgloss.Style
	StreamCursor   lipgloss.Style

	// Input area
	InputContainer   lipgloss.Style
	CharCount        lipgloss.Style
	CharCountWarning lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	StatusBadge  lipgloss.Style
	StatusUpdate lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Picker overlays
	PickerBox      lipgloss.Style
	PickerItem     lipgloss.Style
	PickerSelected lipgloss.Style
	PickerDesc     lipgloss.Style
}

// New creates a theme matched to the current terminal.
func New() *Theme {
	return &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),

		Header: lipgloss.NewStyle().
			Background(SurfaceDim).
			Padding(0, 1),
		HeaderTitle: lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true),
		HeaderInfo: lipgloss.NewStyle().
			Foreground(TextMuted),

		UserLabel: lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true),
		AssistantLabel: lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true),
		ErrorLabel: lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true),
		MessageBody: lipgloss.NewStyle().
			Foreground(Text),
		ErrorBody: lipgloss.NewStyle().
			Foreground(Rose),
		Timestamp: lipgloss.NewStyle().
			Foreground(TextMuted),
		Attachment: lipgloss.NewStyle().
			Foreground(Cyan),
		StreamCursor: lipgloss.NewStyle().
			Foreground(Purple).
			Blink(true),

		InputContainer: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(TextMuted).
			Padding(0, 1),
		CharCount: lipgloss.NewStyle().
			Foreground(TextMuted),
		CharCountWarning: lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true),

		StatusBar: lipgloss.NewStyle().
			Background(SurfaceDim).
			Foreground(TextMuted).
			Padding(0, 1),
		StatusBadge: lipgloss.NewStyle().
			Foreground(Emerald),
		StatusUpdate: lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true),
		ShortcutKey: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		ShortcutDesc: lipgloss.NewStyle().
			Foreground(TextMuted),

		PickerBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Purple).
			Padding(1, 2),
		PickerItem: lipgloss.NewStyle().
			Foreground(Text),
		PickerSelected: lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true),
		PickerDesc: lipgloss.NewStyle().
			Foreground(TextMuted),
	}
}
