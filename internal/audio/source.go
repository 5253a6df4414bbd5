package audio

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"audiosub/internal/services"
)

// AdvisoryMaxBytes is the size above which callers should warn that the
// model may reject or truncate the clip. It is not enforced.
const AdvisoryMaxBytes = 20 << 20

// RecordingMimeType is the container type of microphone recordings.
const RecordingMimeType = "audio/webm"

// Source is one immutable audio clip plus the name shown to the user.
type Source struct {
	data        []byte
	mimeType    string
	displayName string
}

// NewSource copies data into a new source.
func NewSource(data []byte, mimeType, displayName string) Source {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Source{
		data:        buf,
		mimeType:    strings.TrimSpace(mimeType),
		displayName: strings.TrimSpace(displayName),
	}
}

// SelectFile loads an audio file from disk. The MIME type is sniffed from the
// content and falls back to the file extension when sniffing is inconclusive.
// Non-audio files are accepted; check IsAudio.
func SelectFile(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, services.Wrap(services.ErrValidation, "audio", "select file", fmt.Sprintf("stat %q", path), err)
	}
	if info.IsDir() {
		return Source{}, services.Wrap(services.ErrValidation, "audio", "select file", fmt.Sprintf("%q is a directory", path), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, services.Wrap(services.ErrValidation, "audio", "select file", fmt.Sprintf("read %q", path), err)
	}
	if len(data) == 0 {
		return Source{}, services.Wrap(services.ErrValidation, "audio", "select file", fmt.Sprintf("%q is empty", path), nil)
	}
	return Source{
		data:        data,
		mimeType:    detectMimeType(data, path),
		displayName: filepath.Base(path),
	}, nil
}

func detectMimeType(data []byte, path string) string {
	detected := mimetype.Detect(data)
	sniffed := detected.String()
	if idx := strings.Index(sniffed, ";"); idx >= 0 {
		sniffed = sniffed[:idx]
	}
	if isAudioType(sniffed) {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if idx := strings.Index(byExt, ";"); idx >= 0 {
			byExt = byExt[:idx]
		}
		if isAudioType(byExt) || sniffed == "application/octet-stream" {
			return byExt
		}
	}
	// WebM and MP4 sniff as video even when they only carry an audio track.
	switch sniffed {
	case "video/webm":
		return "audio/webm"
	case "video/mp4":
		return "audio/mp4"
	}
	return sniffed
}

func isAudioType(value string) bool {
	return strings.HasPrefix(value, "audio/")
}

// Bytes returns a copy of the audio payload.
func (s Source) Bytes() []byte {
	buf := make([]byte, len(s.data))
	copy(buf, s.data)
	return buf
}

// Size is the payload length in bytes.
func (s Source) Size() int { return len(s.data) }

// MimeType is the payload content type; it may be empty for in-memory sources.
func (s Source) MimeType() string { return s.mimeType }

// DisplayName is the original file name or the generated recording name.
func (s Source) DisplayName() string { return s.displayName }

// IsZero reports whether the source carries no audio.
func (s Source) IsZero() bool { return len(s.data) == 0 }

// IsAudio reports whether the MIME type is audio.
func (s Source) IsAudio() bool { return isAudioType(s.mimeType) }

// ExceedsAdvisorySize reports whether the clip is larger than AdvisoryMaxBytes.
func (s Source) ExceedsAdvisorySize() bool { return len(s.data) > AdvisoryMaxBytes }
