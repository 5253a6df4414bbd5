package subtitles

import (
	"strings"
	"testing"
)

func TestBuildPromptContainsCommonConstraintsAndOneModeClause(t *testing.T) {
	for _, mode := range Modes {
		prompt := BuildPrompt(mode)
		for i, rule := range CommonConstraints {
			if !strings.Contains(prompt, rule) {
				t.Fatalf("%s prompt missing constraint %d: %q", mode, i+1, rule)
			}
		}
		matches := 0
		for _, other := range Modes {
			if strings.Contains(prompt, ModeClause(other)) {
				matches++
				if other != mode {
					t.Fatalf("%s prompt contains the %s clause", mode, other)
				}
			}
		}
		if matches != 1 {
			t.Fatalf("%s prompt contains %d mode clauses", mode, matches)
		}
		if !strings.Contains(prompt, "7. "+ModeClause(mode)) {
			t.Fatalf("%s clause is not item 7:\n%s", mode, prompt)
		}
	}
}

func TestOnlyBilingualClauseHasExample(t *testing.T) {
	for _, mode := range Modes {
		hasExample := strings.Contains(ModeClause(mode), "-->")
		if mode == ModeBilingual && !hasExample {
			t.Fatal("bilingual clause lacks an example cue")
		}
		if mode != ModeBilingual && hasExample {
			t.Fatalf("%s clause should not carry an example", mode)
		}
	}
}

func TestCommonConstraintsCoverTimestampFormat(t *testing.T) {
	if len(CommonConstraints) != 6 {
		t.Fatalf("expected six common constraints, got %d", len(CommonConstraints))
	}
	if !strings.Contains(BuildPrompt(ModeTranscript), "HH:MM:SS,mmm") {
		t.Fatal("prompt does not pin the timestamp format")
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range Modes {
		got, err := ParseMode(" " + strings.ToUpper(mode.String()) + " ")
		if err != nil || got != mode {
			t.Fatalf("ParseMode(%q) = %v, %v", mode.String(), got, err)
		}
		if mode.Label() == "" || mode.Label() == mode.String() {
			t.Fatalf("%s has no label", mode)
		}
	}
	if _, err := ParseMode("klingon"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
