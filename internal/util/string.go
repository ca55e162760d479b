// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

// Ellipsis is appended when TruncateRunes shortens a string.
const Ellipsis = "…"

// TruncateRunes truncates a string to maxLen runes, appending an ellipsis
// when the string was shortened. Rune-based so multi-byte characters are
// never split.
func TruncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + Ellipsis
}

// FirstLine returns the string up to (not including) the first newline.
func FirstLine(s string) string {
	for i, r := range s {
		if r == '\n' || r == '\r' {
			return s[:i]
		}
	}
	return s
}
