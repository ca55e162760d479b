// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"sync"
)

// =============================================================================
// KV INTERFACE
// =============================================================================

// ErrQuotaExceeded is returned by Set when a write would push the backend
// past its capacity.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// KV is the minimal key-value surface the rest of the client builds on.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set stores value under key, returning ErrQuotaExceeded when the
	// backend is out of capacity.
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// =============================================================================
// IN-MEMORY BACKEND
// =============================================================================

// MemoryKV is a map-backed KV with an optional byte quota. The zero quota
// means unlimited. Used for session-scoped state and in tests.
type MemoryKV struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
	used  int
}

// NewMemoryKV creates an unlimited in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// NewMemoryKVWithQuota creates an in-memory store that rejects writes once
// the total stored bytes would exceed quota.
func NewMemoryKVWithQuota(quota int) *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte), quota: quota}
}

// Get returns the value for key, or ErrNotFound.
func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores value under key, enforcing the quota if one is configured.
func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.used - len(m.data[key]) + len(value)
	if m.quota > 0 && next > m.quota {
		return ErrQuotaExceeded
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	m.used = next
	return nil
}

// Delete removes key.
func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.used -= len(m.data[key])
	delete(m.data, key)
	return nil
}
