package subtitles

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"audiosub/internal/textutil"
)

// Document is validated SRT text. It is kept as an opaque string; helpers only
// inspect its structure.
type Document string

func (d Document) String() string { return string(d) }

// Empty reports whether the document has no content.
func (d Document) Empty() bool { return strings.TrimSpace(string(d)) == "" }

// CueCount returns the number of blank-line separated blocks.
func (d Document) CueCount() int {
	count := 0
	for _, block := range splitBlocks(string(d)) {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// Span returns the earliest start and latest end timestamp found in the
// document. ok is false when no timestamp line parses.
func (d Document) Span() (first, last time.Duration, ok bool) {
	low := math.Inf(1)
	var high float64
	for _, line := range strings.Split(strings.ReplaceAll(string(d), "\r\n", "\n"), "\n") {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.Split(line, "-->")
		if len(parts) != 2 {
			continue
		}
		if start, err := parseSRTTimestamp(parts[0]); err == nil {
			low = math.Min(low, start)
			ok = true
		}
		if end, err := parseSRTTimestamp(parts[1]); err == nil {
			high = math.Max(high, end)
		}
	}
	if !ok {
		return 0, 0, false
	}
	return seconds(low), seconds(high), true
}

// Bytes renders the document for export: UTF-8, LF line endings, a trailing
// newline and no BOM.
func (d Document) Bytes() []byte {
	text := strings.TrimPrefix(string(d), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return []byte(text)
}

// OutputName derives the .srt file name from an audio display name by
// replacing its extension.
func OutputName(displayName string) string {
	base := filepath.Base(strings.TrimSpace(displayName))
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	base = textutil.SanitizeFileName(base)
	if base == "" || base == "." {
		base = "subtitles"
	}
	return base + ".srt"
}

func splitBlocks(content string) []string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n\n")
}

func parseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// Some models emit a period before the milliseconds.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}
