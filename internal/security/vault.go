// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"encoding/base64"
	"errors"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openclaw/openclaw-tui/internal/storage"
	"github.com/openclaw/openclaw-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// credentialKey is the storage key for the obfuscated credential.
const credentialKey = "vault.credential"

// violationDetailMaxLen caps the detail recorded per violation, in runes.
const violationDetailMaxLen = 60

// keyFormat validates credential shape before the vault accepts it.
var keyFormat = regexp.MustCompile(`^sk-ant-[a-zA-Z0-9\-_]{20,}$`)

// ErrInvalidKeyFormat is returned when a candidate credential does not match
// the expected shape.
var ErrInvalidKeyFormat = errors.New("credential does not match expected key format")

// =============================================================================
// VAULT
// =============================================================================

// Vault holds the API credential, either in process memory for the session
// or obfuscated in durable storage when the user opts in.
//
// SECURITY: Durable storage holds a base64 encoding, not ciphertext. The
// value is recoverable by anyone who can read the store; opting in trades
// that exposure for not re-entering the key each session.
type Vault struct {
	mu       sync.RWMutex
	session  string
	durable  storage.KV
	log      zerolog.Logger
	breaches int
}

// NewVault creates a vault backed by the given durable store.
func NewVault(durable storage.KV, log zerolog.Logger) *Vault {
	return &Vault{
		durable: durable,
		log:     log.With().Str("component", "vault").Logger(),
	}
}

// ValidKeyFormat reports whether candidate matches the expected credential
// shape without storing it.
func ValidKeyFormat(candidate string) bool {
	return keyFormat.MatchString(candidate)
}

// Store validates and stores a credential in the scope persist selects:
// session memory, or additionally the obfuscated durable copy. The other
// scope keeps its prior value.
func (v *Vault) Store(candidate string, persist bool) error {
	if !ValidKeyFormat(candidate) {
		v.RecordViolation("credential", "rejected key with invalid format")
		return ErrInvalidKeyFormat
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.session = candidate

	if !persist {
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(candidate))
	if err := v.durable.Set(credentialKey, []byte(encoded)); err != nil {
		// Session copy is already in place; persistence is best effort.
		v.log.Warn().Err(err).Msg("failed to persist credential")
		return nil
	}
	return nil
}

// Retrieve returns the credential, preferring session scope. A persisted
// value that fails to decode is treated as absent.
func (v *Vault) Retrieve() string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.session != "" {
		return v.session
	}

	encoded, err := v.durable.Get(credentialKey)
	if err != nil || len(encoded) == 0 {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		v.log.Warn().Msg("persisted credential is corrupt, ignoring")
		return ""
	}
	return string(decoded)
}

// HasCredential reports whether a credential is available in either scope.
func (v *Vault) HasCredential() bool {
	return v.Retrieve() != ""
}

// Clear removes the credential from both scopes.
func (v *Vault) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.session = ""
	if err := v.durable.Delete(credentialKey); err != nil {
		v.log.Warn().Err(err).Msg("failed to delete persisted credential")
	}
}

// =============================================================================
// VIOLATION TRACKING
// =============================================================================

// RecordViolation logs a security-relevant rejection with a bounded detail
// string and increments the session violation counter.
func (v *Vault) RecordViolation(kind, detail string) {
	v.mu.Lock()
	v.breaches++
	count := v.breaches
	v.mu.Unlock()

	v.log.Warn().
		Str("kind", kind).
		Str("detail", util.TruncateRunes(detail, violationDetailMaxLen)).
		Int("count", count).
		Msg("security violation recorded")
}

// ViolationCount returns the number of violations recorded this session.
func (v *Vault) ViolationCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.breaches
}
