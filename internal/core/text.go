package core

import "strings"

// MaxContentChars is the character budget applied to scraped text before
// storage and before any LLM call.
const MaxContentChars = 65000

// TruncateAtWord truncates s to at most max characters, preferring to cut at
// the last word boundary inside the budget. A max of zero or less returns s
// unchanged.
func TruncateAtWord(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > max/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \t\n")
}
