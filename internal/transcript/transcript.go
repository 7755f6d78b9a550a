// Package transcript normalizes raw speech-to-text output before it reaches
// analysis. The speech-to-text collaborator returns a sentinel string when no
// real model is configured; that sentinel must never be treated as content.
package transcript

import "strings"

// StubSentinel is the literal the speech-to-text collaborator returns when
// it has no model installed.
const StubSentinel = "[Stub transcript: install faster-whisper and add audio]"

// NoSpeechPlaceholder is shown when transcription succeeded but produced no
// text. It is display text, not an error.
const NoSpeechPlaceholder = "[No speech detected]"

// Normalize trims t and maps the stub sentinel to the empty string. Empty
// output means "no usable transcript"; callers route to manual entry or
// skip analysis.
func Normalize(t string) string {
	trimmed := strings.TrimSpace(t)
	if trimmed == StubSentinel || strings.Contains(trimmed, StubSentinel) {
		return ""
	}
	return trimmed
}

// PlaceholderIfEmpty substitutes the no-speech placeholder for an empty
// post-transcription result.
func PlaceholderIfEmpty(t string) string {
	if strings.TrimSpace(t) == "" {
		return NoSpeechPlaceholder
	}
	return t
}

// IsUsable reports whether t carries real content worth analyzing.
func IsUsable(t string) bool {
	n := Normalize(t)
	return n != "" && n != NoSpeechPlaceholder
}
