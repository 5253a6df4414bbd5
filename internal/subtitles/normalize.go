package subtitles

import (
	"regexp"
	"strings"
)

var (
	// A fence marker with an optional language tag on the same line.
	codeFencePattern = regexp.MustCompile("```[A-Za-z0-9_+-]*")
	cueAnchorPattern = regexp.MustCompile(`\d+\r?\n\d{2}:\d{2}:\d{2}`)
)

// StripCodeFences removes every markdown fence marker and trims the result.
func StripCodeFences(text string) string {
	return strings.TrimSpace(codeFencePattern.ReplaceAllString(text, ""))
}

// RepairStructure drops any leading prose before the first cue anchor (an
// index line followed by a timestamp). Text that already starts with a digit,
// or that has no anchor at all, is returned unchanged.
func RepairStructure(text string) string {
	if text == "" || startsWithDigit(text) {
		return text
	}
	loc := cueAnchorPattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[loc[0]:]
}

// HasCueAnchor reports whether text contains at least one cue anchor.
func HasCueAnchor(text string) bool {
	return cueAnchorPattern.MatchString(text)
}

// Normalize strips fences then repairs leading garbage.
func Normalize(text string) string {
	return RepairStructure(StripCodeFences(text))
}

func startsWithDigit(text string) bool {
	return text[0] >= '0' && text[0] <= '9'
}
