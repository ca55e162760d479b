// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// MaxInputLen is the maximum accepted message length, in runes.
const MaxInputLen = 8000

// MaxAttachments is the maximum number of attachment references per message.
const MaxAttachments = 3

// injectionPattern pairs a compiled screen with the label reported on match.
type injectionPattern struct {
	label string
	re    *regexp.Regexp
}

// injectionPatterns screens for common prompt-injection phrasings.
// SECURITY: Heuristic screening only. A motivated user can rephrase past
// these; the point is to stop copy-pasted boilerplate attacks cheaply.
var injectionPatterns = []injectionPattern{
	{"instruction-override", regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?|rules?)`)},
	{"role-hijack", regexp.MustCompile(`(?i)system\s*:\s*(you are|act as|pretend|forget)`)},
	{"template-token", regexp.MustCompile(`(?i)\[INST\]|\[SYS\]|<\|im_start\|>`)},
	{"jailbreak", regexp.MustCompile(`(?i)jailbreak|DAN mode|developer mode|override safety`)},
	{"prompt-extraction", regexp.MustCompile(`(?i)reveal\s+(your\s+)?(system\s+prompt|instructions)`)},
}

// controlChars matches control characters stripped from input. Tab, LF and
// CR survive; everything else in C0, DEL, and the C1 range is removed.
var controlChars = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F\u0080-\u009F]")

// =============================================================================
// GUARD
// =============================================================================

// Guard sanitizes and screens outbound message text.
type Guard struct{}

// NewGuard creates an input guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Sanitize strips control characters and surrounding whitespace, then
// truncates to MaxInputLen runes.
func (g *Guard) Sanitize(text string) string {
	out := strings.TrimSpace(controlChars.ReplaceAllString(text, ""))
	if utf8.RuneCountInString(out) > MaxInputLen {
		out = string([]rune(out)[:MaxInputLen])
	}
	return out
}

// DetectInjection screens text against the injection patterns. It returns
// the label of the first matching pattern and true on a hit.
func (g *Guard) DetectInjection(text string) (string, bool) {
	for _, p := range injectionPatterns {
		if p.re.MatchString(text) {
			return p.label, true
		}
	}
	return "", false
}
