package subtitles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"audiosub/internal/audio"
	"audiosub/internal/logging"
	"audiosub/internal/services"
	"audiosub/internal/services/gemini"
)

// Temperature is the fixed sampling temperature; low values keep the model
// literal.
const Temperature = 0.2

// Model is the external generative model transport.
type Model interface {
	GenerateContent(ctx context.Context, req gemini.Request) (gemini.Response, error)
}

// GeneratorConfig carries the settings injected at construction.
type GeneratorConfig struct {
	APIKey string
}

// Generator turns an audio source into a validated SRT document.
type Generator struct {
	cfg    GeneratorConfig
	model  Model
	logger *slog.Logger
}

// NewGenerator constructs a generator around model.
func NewGenerator(cfg GeneratorConfig, model Model, logger *slog.Logger) *Generator {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &Generator{
		cfg:    cfg,
		model:  model,
		logger: logging.NewComponentLogger(logger, "generator"),
	}
}

// Generate requests subtitles for source in the given mode. Every failure is
// returned wrapped in one of the services markers and no partial document is
// ever returned.
func (g *Generator) Generate(ctx context.Context, source audio.Source, mode Mode) (Document, error) {
	if g.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "subtitles", "generate", "api key not configured", nil)
	}
	if g.model == nil {
		return "", services.Wrap(services.ErrConfiguration, "subtitles", "generate", "model client not configured", nil)
	}
	if !mode.Valid() {
		return "", services.Wrap(services.ErrValidation, "subtitles", "generate", fmt.Sprintf("unsupported mode %d", int(mode)), nil)
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, g.logger).With(logging.String(logging.FieldMode, mode.String()))

	encoded, err := EncodeAudio(source)
	if err != nil {
		return "", err
	}

	logger.Info("subtitle request sent",
		logging.String(logging.FieldEventType, "subtitle_request"),
		logging.String("source", source.DisplayName()),
		logging.String("mime_type", encoded.MimeType),
		logging.Int("audio_bytes", source.Size()),
	)
	started := time.Now()
	resp, err := g.model.GenerateContent(ctx, gemini.Request{
		SystemInstruction: SystemInstruction,
		Prompt:            BuildPrompt(mode),
		Audio:             gemini.InlineAudio{MimeType: encoded.MimeType, Data: encoded.Base64},
		Temperature:       Temperature,
	})
	if err != nil {
		classified := classifyModelError(err)
		logging.ErrorWithContext(logger, "subtitle request failed", "subtitle_request_failed",
			logging.Error(err),
			logging.String("kind", string(services.Classify(classified))),
			logging.String(logging.FieldErrorHint, services.UserMessage(classified)),
		)
		return "", classified
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		logging.WarnWithContext(logger, "model returned no text", "subtitle_empty_response",
			logging.String("finish_reason", resp.FinishReason),
			logging.String(logging.FieldImpact, "no subtitles produced"),
		)
		return "", services.Wrap(services.ErrEmptyResponse, "subtitles", "generate", "model returned no text", nil)
	}

	doc := Document(Normalize(text))
	if doc.Empty() {
		return "", services.Wrap(services.ErrEmptyResponse, "subtitles", "generate", "response contained only code fences", nil)
	}
	if !HasCueAnchor(doc.String()) {
		logging.WarnWithContext(logger, "response has no recognizable cue", "srt_anchor_missing",
			logging.String(logging.FieldErrorHint, "inspect the output; the model may have ignored the format"),
			logging.String(logging.FieldImpact, "subtitle file may not be valid SRT"),
		)
	}
	logger.Info("subtitle response normalized",
		logging.String(logging.FieldEventType, "subtitle_response"),
		logging.Int("cues", doc.CueCount()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return doc, nil
}

func classifyModelError(err error) error {
	var blocked *gemini.BlockedError
	if errors.As(err, &blocked) && blocked.Safety() {
		return services.Wrap(services.ErrSafetyRejection, "subtitles", "generate", "content policy block", err)
	}
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) && apiErr.RateLimited() {
		return services.Wrap(services.ErrRateLimit, "subtitles", "generate", "request throttled", err)
	}
	return services.Wrap(services.ErrUnknown, "subtitles", "generate", "", err)
}
