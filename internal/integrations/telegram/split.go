package telegram

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage cuts text into chunks of at most MaxMessageLength. Cuts prefer
// a double line-break, then a single line-break, then a space, and only when
// the candidate lies past the halfway mark of the window so chunks never get
// pathologically small. With no acceptable break the cut is hard, possibly
// mid-word (but never mid-rune). Concatenating the chunks restores the input.
func SplitMessage(text string) []string {
	if len(text) <= MaxMessageLength {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for len(remaining) > 0 {
		if len(remaining) <= MaxMessageLength {
			chunks = append(chunks, remaining)
			break
		}
		cut := breakPoint(remaining)
		chunks = append(chunks, remaining[:cut])
		remaining = remaining[cut:]
	}
	return chunks
}

func breakPoint(s string) int {
	window := s[:MaxMessageLength]

	if i := strings.LastIndex(window, "\n\n"); i > MaxMessageLength/2 {
		return i + 2
	}
	if i := strings.LastIndex(window, "\n"); i > MaxMessageLength/2 {
		return i + 1
	}
	if i := strings.LastIndex(window, " "); i > MaxMessageLength/2 {
		return i + 1
	}

	// Hard cut, backed off to a rune boundary.
	cut := MaxMessageLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return cut
}
