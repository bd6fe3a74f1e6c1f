package ai

import (
	"regexp"
	"strings"
)

var danglingObject = regexp.MustCompile(`,\s*\{\s*$`)

// Salvage repairs the truncation shapes seen at the tail of streamed model
// output so the buffer has a chance of parsing as a JSON array:
//
//   - a markdown code fence around the payload is dropped
//   - a trailing ",{" (an element cut off before any content) is removed
//   - "]]" at the very end collapses to a single "]"
//   - an array that was opened but never closed gets its "]"
//
// It is not a general JSON repair. Anything else is left for the decoder to reject.
func Salvage(s string) string {
	s = stripCodeFence(s)
	s = danglingObject.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, "]]") {
		s = s[:len(s)-1]
	}
	if strings.HasPrefix(s, "[") && !strings.HasSuffix(s, "]") {
		s += "]"
	}
	return s
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
