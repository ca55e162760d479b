// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat contains the controller that drives a send through its full
// pipeline: sanitize, screen, rate limit, persist, stream, finalize.
package chat
