// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persistence layer: a small key-value
// abstraction with in-memory and SQLite backends, and the conversation
// store built on top of it.
package storage
