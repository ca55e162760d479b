// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// STREAMING: Robust SSE parsing with a terminal-once delivery contract

// =============================================================================
// STREAMING TYPES
// =============================================================================

// MaxLineSize is the maximum allowed size for a single SSE line (64KB).
const MaxLineSize = 64 * 1024

// StreamHandlers receives stream progress. Exactly one of OnDone or OnError
// fires per stream, after which no further callbacks occur.
type StreamHandlers struct {
	// OnChunk receives each text delta plus the full accumulated text.
	OnChunk func(delta, full string)
	// OnDone receives the complete response text.
	OnDone func(full string)
	// OnError receives the terminal failure. Partial text already delivered
	// through OnChunk remains valid.
	OnError func(err error)
}

// streamEvent is the decoded wire shape of one SSE data payload. Events are
// discriminated by the type tag; unknown types are ignored so new server
// event kinds cannot break the stream.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// STREAMING REQUEST
// =============================================================================

// StreamMessage performs a streaming completion, delivering text deltas as
// they arrive. All outcomes flow through the handlers; callers get exactly
// one terminal callback regardless of how the stream ends.
func (c *Client) StreamMessage(ctx context.Context, apiKey string, req Request, h StreamHandlers) {
	terminal := newTerminalGuard(h)

	if apiKey == "" {
		terminal.fail(ErrNoCredential)
		return
	}

	resp, err := c.send(ctx, c.streaming, apiKey, req, true)
	if err != nil {
		terminal.fail(err)
		return
	}
	defer resp.Body.Close()

	c.processStream(ctx, resp.Body, h, terminal)
}

// processStream reads the SSE body line by line, forwarding text deltas.
func (c *Client) processStream(ctx context.Context, body io.Reader, h StreamHandlers, terminal *terminalGuard) {
	var accumulated strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			terminal.fail(ctx.Err())
			return
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == "" {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Skip malformed payloads rather than aborting the stream.
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type != "text_delta" || event.Delta.Text == "" {
				continue
			}
			accumulated.WriteString(event.Delta.Text)
			if h.OnChunk != nil {
				h.OnChunk(event.Delta.Text, accumulated.String())
			}

		case "error":
			terminal.fail(&APIError{Type: event.Error.Type, Message: event.Error.Message})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		// Cancellation surfaces as a read error on the response body.
		if ctx.Err() != nil {
			terminal.fail(ctx.Err())
		} else {
			terminal.fail(err)
		}
		return
	}

	terminal.done(accumulated.String())
}

// =============================================================================
// TERMINAL GUARD
// =============================================================================

// terminalGuard enforces the one-terminal-callback contract.
type terminalGuard struct {
	h     StreamHandlers
	fired bool
}

func newTerminalGuard(h StreamHandlers) *terminalGuard {
	return &terminalGuard{h: h}
}

func (t *terminalGuard) done(full string) {
	if t.fired {
		return
	}
	t.fired = true
	if t.h.OnDone != nil {
		t.h.OnDone(full)
	}
}

func (t *terminalGuard) fail(err error) {
	if t.fired {
		return
	}
	t.fired = true
	if t.h.OnError != nil {
		t.h.OnError(err)
	}
}
