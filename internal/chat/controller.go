// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openclaw/openclaw-tui/internal/anthropic"
	"github.com/openclaw/openclaw-tui/internal/model"
	"github.com/openclaw/openclaw-tui/internal/security"
	"github.com/openclaw/openclaw-tui/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy indicates a send or switch while a response is streaming.
	ErrBusy = errors.New("a response is already in progress")

	// ErrEmptyMessage indicates the message was empty after sanitization.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoCredential indicates no API key is available.
	ErrNoCredential = errors.New("no API key configured")
)

// BlockedError indicates the message matched an injection pattern and was
// not sent.
type BlockedError struct {
	Pattern string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("message blocked by %s screen", e.Pattern)
}

// RateLimitError indicates the send budget is exhausted.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit reached, retry in %v", e.Wait)
}

// =============================================================================
// HOOKS
// =============================================================================

// Hooks receives progress for a send accepted by the controller. Exactly
// one of OnDone or OnError fires per accepted send.
type Hooks struct {
	// OnChunk receives each streamed delta with the accumulated text.
	OnChunk func(messageID, delta, full string)
	// OnDone fires when the response is complete and persisted.
	OnDone func(messageID, full string)
	// OnError fires when the send fails after acceptance.
	OnError func(messageID string, err error)
	// OnStorageWarn reports persistence failures that did not stop the
	// send. The session continues with in-memory state only.
	OnStorageWarn func(err error)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the send pipeline. One send may be in flight at a time;
// conversation switches are rejected while streaming so the stream target
// cannot change underneath the response.
type Controller struct {
	guard   *security.Guard
	limiter *security.RateLimiter
	vault   *security.Vault
	store   *storage.Store
	client  *anthropic.Client
	log     zerolog.Logger

	mu      sync.Mutex
	modelID string
	busy    bool
	cancel  context.CancelFunc
}

// New creates a controller over its collaborators.
func New(guard *security.Guard, limiter *security.RateLimiter, vault *security.Vault, store *storage.Store, client *anthropic.Client, log zerolog.Logger) *Controller {
	return &Controller{
		guard:   guard,
		limiter: limiter,
		vault:   vault,
		store:   store,
		client:  client,
		log:     log.With().Str("component", "chat").Logger(),
		modelID: model.DefaultModelID,
	}
}

// SetModel selects the API model for subsequent sends.
func (c *Controller) SetModel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelID = model.ModelByID(id).ID
}

// Model returns the selected model.
func (c *Controller) Model() model.ModelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.ModelByID(c.modelID)
}

// Busy reports whether a response is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// =============================================================================
// SEND PIPELINE
// =============================================================================

// Send validates and dispatches a message. A nil return means the send was
// accepted and exactly one terminal hook will fire; a non-nil return means
// nothing was sent and no hooks fire.
func (c *Controller) Send(ctx context.Context, text string, attachments []string, hooks Hooks) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	sanitized := c.guard.Sanitize(text)
	if sanitized == "" && len(attachments) == 0 {
		return ErrEmptyMessage
	}
	if label, hit := c.guard.DetectInjection(sanitized); hit {
		c.vault.RecordViolation("injection", label+": "+sanitized)
		return &BlockedError{Pattern: label}
	}
	if res := c.limiter.Check(); !res.OK {
		return &RateLimitError{Wait: res.Wait}
	}
	if !c.vault.HasCredential() {
		return ErrNoCredential
	}

	if len(attachments) > security.MaxAttachments {
		attachments = attachments[:security.MaxAttachments]
	}

	conv, err := c.store.Active()
	if err != nil {
		// Conversation exists in memory even when persistence failed.
		c.warnStorage(hooks, err)
	}
	if conv == nil {
		return err
	}

	if err := c.store.Append(model.NewUserMessage(sanitized, attachments)); err != nil {
		c.warnStorage(hooks, err)
	}

	placeholder := model.NewStreamingMessage()
	if err := c.store.Append(placeholder); err != nil {
		c.warnStorage(hooks, err)
	}

	req := anthropic.Request{
		Model:    c.modelID,
		System:   model.PersonaByID(conv.PersonaID).Prompt,
		Messages: c.store.ContextWindow(),
	}

	sendCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.busy = true
	c.cancel = cancel
	c.mu.Unlock()

	go c.stream(sendCtx, cancel, req, placeholder, hooks)
	return nil
}

// stream runs the API call and terminal bookkeeping off the caller's
// goroutine.
func (c *Controller) stream(ctx context.Context, cancel context.CancelFunc, req anthropic.Request, placeholder *model.Message, hooks Hooks) {
	defer cancel()

	c.client.StreamMessage(ctx, c.vault.Retrieve(), req, anthropic.StreamHandlers{
		OnChunk: func(delta, full string) {
			placeholder.SetStreamContent(full)
			if hooks.OnChunk != nil {
				hooks.OnChunk(placeholder.ID, delta, full)
			}
		},
		OnDone: func(full string) {
			placeholder.SetStreamContent(full)
			placeholder.Streaming = false
			if err := c.store.Persist(); err != nil {
				c.warnStorage(hooks, err)
			}
			c.clearBusy()
			c.log.Debug().Str("model", req.Model).Int("chars", len(full)).Msg("response complete")
			if hooks.OnDone != nil {
				hooks.OnDone(placeholder.ID, full)
			}
		},
		OnError: func(err error) {
			c.finalizeError(placeholder, err, hooks)
		},
	})
}

// finalizeError replaces the placeholder with an error-role message and
// persists it. Partial text is discarded: an incomplete response must not
// re-enter future context windows as a finished assistant turn.
func (c *Controller) finalizeError(placeholder *model.Message, err error, hooks Hooks) {
	placeholder.Role = model.RoleError
	placeholder.Content = humanize(err)
	placeholder.Streaming = false
	if persistErr := c.store.Persist(); persistErr != nil {
		c.warnStorage(hooks, persistErr)
	}

	c.clearBusy()
	c.log.Warn().Err(err).Msg("send failed")
	if hooks.OnError != nil {
		hooks.OnError(placeholder.ID, err)
	}
}

// Cancel aborts the in-flight response, if any. The terminal OnError hook
// still fires exactly once.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) clearBusy() {
	c.mu.Lock()
	c.busy = false
	c.cancel = nil
	c.mu.Unlock()
}

func (c *Controller) warnStorage(hooks Hooks, err error) {
	c.log.Warn().Err(err).Msg("persistence failed, continuing in memory")
	if hooks.OnStorageWarn != nil {
		hooks.OnStorageWarn(err)
	}
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

// NewConversation starts a conversation with the given persona and makes it
// active. Rejected while a response is streaming.
func (c *Controller) NewConversation(personaID string) (*model.Conversation, error) {
	if c.Busy() {
		return nil, ErrBusy
	}
	return c.store.NewConversation(personaID)
}

// Switch changes the active conversation. Rejected while a response is
// streaming so the stream target stays fixed.
func (c *Controller) Switch(id string) error {
	if c.Busy() {
		return ErrBusy
	}
	return c.store.Switch(id)
}

// Delete removes a conversation. Rejected while a response is streaming.
func (c *Controller) Delete(id string) error {
	if c.Busy() {
		return ErrBusy
	}
	return c.store.Delete(id)
}

// ClearAll deletes every conversation. Rejected while a response is
// streaming.
func (c *Controller) ClearAll() error {
	if c.Busy() {
		return ErrBusy
	}
	return c.store.ClearAll()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// humanize maps pipeline errors to user-facing text.
func humanize(err error) string {
	var apiErr *anthropic.APIError
	switch {
	case errors.Is(err, context.Canceled):
		return "Response cancelled."
	case errors.Is(err, anthropic.ErrNoCredential):
		return "No API key configured. Add one in settings."
	case errors.As(err, &apiErr):
		if apiErr.Temporary() {
			return "The API is temporarily unavailable. Try again shortly."
		}
		return fmt.Sprintf("Request failed: %s", apiErr.Message)
	default:
		return fmt.Sprintf("Request failed: %v", err)
	}
}
