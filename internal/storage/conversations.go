// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openclaw/openclaw-tui/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// stateKey is the KV key holding the serialized conversation state.
const stateKey = "chat.state"

// MaxConversations is the retention ceiling. Reaching it evicts the least
// recently active conversation before a new one is created.
const MaxConversations = 8

// ContextMessages is the number of trailing messages sent with a request.
const ContextMessages = 20

// =============================================================================
// ERRORS
// =============================================================================

// StorageError reports a persistence failure that survived the eviction
// retry. The in-memory state is still intact when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// state is the serialized form of the store.
type state struct {
	Conversations []*model.Conversation `json:"convos"`
	ActiveID      string                `json:"active"`
}

// Store owns all conversations and the active-conversation pointer, and
// keeps them durable through a KV backend.
//
// RELIABILITY: Memory is the source of truth. Every mutation persists the
// full state; a persistence failure leaves memory intact and is surfaced to
// the caller so the session can continue unsaved.
type Store struct {
	mu       sync.Mutex
	kv       KV
	convos   map[string]*model.Conversation
	activeID string
	log      zerolog.Logger
}

// NewStore creates a store over kv, loading any persisted state. Corrupt
// state is discarded with a warning rather than failing startup.
func NewStore(kv KV, log zerolog.Logger) *Store {
	s := &Store{
		kv:     kv,
		convos: make(map[string]*model.Conversation),
		log:    log.With().Str("component", "store").Logger(),
	}
	s.load()
	return s
}

// load restores persisted state into memory.
func (s *Store) load() {
	raw, err := s.kv.Get(stateKey)
	if err != nil {
		return
	}

	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		s.log.Warn().Err(err).Msg("persisted state is corrupt, starting fresh")
		return
	}

	for _, conv := range st.Conversations {
		if conv != nil && conv.ID != "" {
			s.convos[conv.ID] = conv
		}
	}
	if _, ok := s.convos[st.ActiveID]; ok {
		s.activeID = st.ActiveID
	}
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// NewConversation creates a conversation, makes it active, and persists.
// At the retention ceiling the least recently active conversation is
// evicted first.
func (s *Store) NewConversation(personaID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.convos) >= MaxConversations {
		s.evictOldestLocked("")
	}

	conv := model.NewConversation(personaID)
	s.convos[conv.ID] = conv
	s.activeID = conv.ID

	return conv, s.persistLocked()
}

// Active returns the active conversation, creating one with the default
// persona if none exists.
func (s *Store) Active() (*model.Conversation, error) {
	s.mu.Lock()
	if conv, ok := s.convos[s.activeID]; ok {
		s.mu.Unlock()
		return conv, nil
	}
	s.mu.Unlock()
	return s.NewConversation(model.DefaultPersonaID)
}

// Switch makes the conversation with the given ID active.
func (s *Store) Switch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convos[id]; !ok {
		return fmt.Errorf("unknown conversation %q", id)
	}
	s.activeID = id
	return s.persistLocked()
}

// Delete removes a conversation. Deleting the active conversation clears
// the active pointer.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convos[id]; !ok {
		return nil
	}
	delete(s.convos, id)
	if s.activeID == id {
		s.activeID = ""
	}
	return s.persistLocked()
}

// List returns all conversations, most recently active first.
func (s *Store) List() []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Conversation, 0, len(s.convos))
	for _, conv := range s.convos {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// ClearAll empties the store and clears the active pointer.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.convos = make(map[string]*model.Conversation)
	s.activeID = ""
	return s.persistLocked()
}

// Count returns the number of stored conversations.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convos)
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// Append adds a message to the active conversation and persists.
func (s *Store) Append(msg *model.Message) error {
	conv, err := s.Active()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	conv.Append(msg)
	return s.persistLocked()
}

// Persist writes the current state. Used after in-place mutation of a
// streaming placeholder.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// ContextWindow returns the trailing sendable messages of the active
// conversation as prompt pairs.
func (s *Store) ContextWindow() []model.PromptMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convos[s.activeID]
	if !ok {
		return nil
	}
	return conv.Window(ContextMessages)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persistLocked writes the full state to the KV backend. On quota
// exhaustion it evicts the least recently active non-active conversation
// and retries once. Caller holds mu.
func (s *Store) persistLocked() error {
	err := s.writeLocked()
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		return &StorageError{Op: "write", Err: err}
	}

	if !s.evictOldestLocked(s.activeID) {
		return &StorageError{Op: "write", Err: ErrQuotaExceeded}
	}
	s.log.Warn().Msg("storage full, evicted oldest conversation")

	if err := s.writeLocked(); err != nil {
		return &StorageError{Op: "write", Err: err}
	}
	return nil
}

// writeLocked marshals and stores the state. Streaming placeholders never
// reach the KV backend; a reloaded store holds finalized history only.
// Caller holds mu.
func (s *Store) writeLocked() error {
	st := state{ActiveID: s.activeID}
	for _, conv := range s.convos {
		st.Conversations = append(st.Conversations, conv.Snapshot())
	}
	sort.Slice(st.Conversations, func(i, j int) bool {
		return st.Conversations[i].LastActivity.Before(st.Conversations[j].LastActivity)
	})

	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.kv.Set(stateKey, raw)
}

// evictOldestLocked removes the least recently active conversation, never
// touching keepID. Returns false when nothing was evictable. Caller holds mu.
func (s *Store) evictOldestLocked(keepID string) bool {
	var oldest *model.Conversation
	for id, conv := range s.convos {
		if id == keepID {
			continue
		}
		if oldest == nil || conv.LastActivity.Before(oldest.LastActivity) {
			oldest = conv
		}
	}
	if oldest == nil {
		return false
	}

	delete(s.convos, oldest.ID)
	if s.activeID == oldest.ID {
		s.activeID = ""
	}
	s.log.Debug().Str("id", oldest.ID).Str("title", oldest.Title).Msg("evicted conversation")
	return true
}
