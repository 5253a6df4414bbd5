package subtitles

import (
	"fmt"
	"strings"

	"audiosub/internal/services"
)

// Mode selects which translation, if any, the model applies to the audio.
type Mode int

const (
	ModeTranscript Mode = iota
	ModeEnglish
	ModeChinese
	ModeBilingual
)

// Modes lists every mode in selector order.
var Modes = []Mode{ModeTranscript, ModeEnglish, ModeChinese, ModeBilingual}

var modeKeys = map[Mode]string{
	ModeTranscript: "transcript",
	ModeEnglish:    "english",
	ModeChinese:    "chinese",
	ModeBilingual:  "bilingual",
}

var modeLabels = map[Mode]string{
	ModeTranscript: "Original transcript (no translation)",
	ModeEnglish:    "Translate to English",
	ModeChinese:    "Translate to Chinese (Simplified)",
	ModeBilingual:  "Bilingual (Chinese + English)",
}

// String returns the config/flag key of the mode.
func (m Mode) String() string {
	if key, ok := modeKeys[m]; ok {
		return key
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Label returns the human-readable selector label.
func (m Mode) Label() string {
	if label, ok := modeLabels[m]; ok {
		return label
	}
	return m.String()
}

// Valid reports whether m is one of the four known modes.
func (m Mode) Valid() bool {
	_, ok := modeKeys[m]
	return ok
}

// ParseMode resolves a mode key case-insensitively.
func ParseMode(value string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	for _, mode := range Modes {
		if modeKeys[mode] == key {
			return mode, nil
		}
	}
	return ModeTranscript, services.Wrap(services.ErrValidation, "subtitles", "parse mode", fmt.Sprintf("unknown mode %q", value), nil)
}
