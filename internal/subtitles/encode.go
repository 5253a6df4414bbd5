package subtitles

import (
	"encoding/base64"
	"strings"

	"audiosub/internal/audio"
	"audiosub/internal/services"
)

// DefaultAudioMimeType is sent when the source carries no MIME type.
const DefaultAudioMimeType = "audio/mp3"

// InlineAudio is the text-safe transport form of an audio source.
type InlineAudio struct {
	MimeType string
	Base64   string
}

// EncodeAudio base64-encodes the source payload and pairs it with its MIME type.
func EncodeAudio(source audio.Source) (InlineAudio, error) {
	data := source.Bytes()
	if len(data) == 0 {
		return InlineAudio{}, services.Wrap(services.ErrValidation, "subtitles", "encode audio", "audio source is empty", nil)
	}
	mimeType := strings.TrimSpace(source.MimeType())
	if mimeType == "" {
		mimeType = DefaultAudioMimeType
	}
	return InlineAudio{
		MimeType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}
