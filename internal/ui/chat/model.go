// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	chatctl "github.com/openclaw/openclaw-tui/internal/chat"
	"github.com/openclaw/openclaw-tui/internal/security"
	"github.com/openclaw/openclaw-tui/internal/storage"
	"github.com/openclaw/openclaw-tui/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Options configures the chat view.
type Options struct {
	Controller *chatctl.Controller
	Store      *storage.Store
	Vault      *security.Vault
	Limiter    *security.RateLimiter
	Theme      *styles.Theme
	// Updates signals a staged application update. May be nil.
	Updates <-chan struct{}
	// PersistKey controls whether /key writes through to durable storage.
	PersistKey bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl    *chatctl.Controller
	store   *storage.Store
	vault   *security.Vault
	limiter *security.RateLimiter
	theme   *styles.Theme

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap
	markdown *glamour.TermRenderer

	// Layout
	width  int
	height int
	ready  bool

	// Streaming state
	streaming      bool
	streamingMsgID string

	// Event bridge
	events  chan tea.Msg
	updates <-chan struct{}

	// Attachments staged for the next send
	pending []string

	// Transient status line and update badge
	statusMsg       string
	updateAvailable bool

	persistKey bool
}

// New creates the chat view.
func New(opts Options) *Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, or /help for commands..."
	ti.CharLimit = security.MaxInputLen
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	return &Model{
		ctrl:       opts.Controller,
		store:      opts.Store,
		vault:      opts.Vault,
		limiter:    opts.Limiter,
		theme:      opts.Theme,
		viewport:   vp,
		input:      ti,
		spinner:    sp,
		keyMap:     DefaultKeyMap(),
		events:     make(chan tea.Msg, 64),
		updates:    opts.Updates,
		persistKey: opts.PersistKey,
	}
}

// Init starts the input cursor and the event bridge.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent(), m.waitForUpdate())
}

// rebuildRenderer sizes the markdown renderer to the viewport. A nil
// renderer falls back to plain text.
func (m *Model) rebuildRenderer() {
	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = r
}
