// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline handles running without the network in mind: local-first
// state lives in storage, and the update watcher notices when a newer build
// has been staged so the UI can prompt for a restart.
package offline
