package subtitles

import (
	"fmt"
	"strings"
)

// SystemInstruction is the persona sent as the request-level system instruction.
const SystemInstruction = "You are a professional subtitle editor and translator. " +
	"You turn spoken audio into accurate, well-timed SubRip (SRT) subtitles."

// CommonConstraints are the numbered output rules shared by every mode.
var CommonConstraints = []string{
	"Listen to the full audio from beginning to end before writing anything.",
	"Output valid SubRip (SRT) cues: a sequential index, a timestamp line, then the text lines, with a blank line between cues.",
	"Format every timestamp exactly as HH:MM:SS,mmm (for example 00:01:02,345 --> 00:01:04,000).",
	"Do not wrap the output in markdown code fences.",
	"Do not add any explanation, greeting or other prose before or after the subtitles.",
	"Break lines at natural pauses in the speech.",
}

// bilingualExample anchors the two-line cue layout. It is the only mode that
// carries an example.
const bilingualExample = "1\n00:00:01,000 --> 00:00:03,500\n今天我们来聊聊天气。\nToday let's talk about the weather."

var modeClauses = map[Mode]string{
	ModeTranscript: "Transcribe the speech verbatim in its original language. Do not translate.",
	ModeEnglish:    "Translate the speech into natural, high-quality English.",
	ModeChinese:    "Translate the speech into natural, fluent Simplified Chinese.",
	ModeBilingual: "Produce two lines per cue: line 1 in Simplified Chinese, line 2 in English. Example cue:\n" +
		bilingualExample,
}

// ModeClause returns the mode-specific instruction appended after the common block.
func ModeClause(mode Mode) string {
	if clause, ok := modeClauses[mode]; ok {
		return clause
	}
	return modeClauses[ModeTranscript]
}

// BuildPrompt composes the numbered task instruction for mode: the common
// constraints followed by the mode clause as the last item.
func BuildPrompt(mode Mode) string {
	var b strings.Builder
	b.WriteString("Generate subtitles for the attached audio. Follow these rules:\n")
	for i, rule := range CommonConstraints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	fmt.Fprintf(&b, "%d. %s\n", len(CommonConstraints)+1, ModeClause(mode))
	return b.String()
}
