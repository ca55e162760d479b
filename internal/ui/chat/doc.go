// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view for the openclaw TUI.

The package implements a terminal chat interface using the Bubble Tea
framework:

  - Model (model.go) holds conversation state, input, viewport, and
    streaming state.
  - Update (update.go) processes key events, stream progress messages,
    and window resizes.
  - View (view.go) renders the header, message log, input area, and
    status bar, with assistant markdown rendered through Glamour.
  - Commands (commands.go) implements the slash command registry
    (/persona, /model, /switch, /key, and friends).
  - Streaming (streaming.go) bridges controller hooks into Bubble Tea
    messages over a channel.
*/
package chat
