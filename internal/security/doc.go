// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security holds the client-side defense layer: credential vault,
// input guard (sanitization and prompt-injection screening), and the
// sliding-window rate limiter.
//
// SECURITY: Everything here runs inside the client process. The vault's
// encoding is reversible obfuscation against casual inspection of the
// backing store, not cryptographic protection; the guard and limiter are
// hygiene and cost controls, not a server-side trust boundary.
package security
