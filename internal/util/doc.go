// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the openclaw TUI:
// atomic file writes for durable state and Unicode-safe string truncation.
package util
