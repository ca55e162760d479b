// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package anthropic implements the Messages API client: request shaping,
// authentication headers, and SSE stream decoding with incremental
// delivery.
package anthropic
