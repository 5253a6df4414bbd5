package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"audiosub/internal/audio"
	"audiosub/internal/fileutil"
	"audiosub/internal/logging"
	"audiosub/internal/services"
	"audiosub/internal/subtitles"
)

var (
	// ErrBusy is returned by actions that are not allowed while a generation
	// is in flight.
	ErrBusy = errors.New("session: generation in progress")
	// ErrNoSource is returned when generating without a selected source.
	ErrNoSource = errors.New("session: no audio source selected")
	// ErrNoDocument is returned by Export outside the Done state.
	ErrNoDocument = errors.New("session: no subtitles to export")
	// ErrDiscarded reports that the source was cleared or replaced while the
	// request was in flight and its result was dropped.
	ErrDiscarded = errors.New("session: result discarded")
)

// Generator produces subtitles for a source.
type Generator interface {
	Generate(ctx context.Context, source audio.Source, mode subtitles.Mode) (subtitles.Document, error)
}

// Snapshot is a consistent read of the controller state.
type Snapshot struct {
	State       State
	Mode        subtitles.Mode
	SourceName  string
	PreviewPath string
	Document    subtitles.Document
	Message     string
	Kind        services.Kind
	Retryable   bool
}

// Controller owns the active source, the selected mode and the last result.
// It is safe for concurrent use; at most one generation runs at a time.
type Controller struct {
	generator Generator
	previews  PreviewStore
	logger    *slog.Logger

	mu         sync.Mutex
	state      State
	mode       subtitles.Mode
	source     audio.Source
	preview    Preview
	document   subtitles.Document
	failure    error
	// requested is the mode of the last issued request; Retry reuses it.
	requested  subtitles.Mode
	generation uint64
}

// NewController returns an Idle controller. previews may be nil.
func NewController(generator Generator, previews PreviewStore, mode subtitles.Mode, logger *slog.Logger) *Controller {
	return &Controller{
		generator: generator,
		previews:  previews,
		mode:      mode,
		logger:    logging.NewComponentLogger(logger, "session"),
	}
}

// Select makes source the active clip, discarding any previous source,
// preview and document.
func (c *Controller) Select(source audio.Source) error {
	if source.IsZero() {
		return services.Wrap(services.ErrValidation, "session", "select", "audio source is empty", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := Transition(c.state, EventSelect)
	if !ok {
		return ErrBusy
	}
	c.releasePreviewLocked()
	c.generation++
	c.source = source
	c.document = ""
	c.failure = nil
	c.state = next

	if c.previews != nil {
		preview, err := c.previews.Create(source)
		if err != nil {
			logging.WarnWithContext(c.logger, "preview unavailable", "preview_create_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "playback preview disabled for this clip"),
			)
		} else {
			c.preview = preview
		}
	}
	c.logger.Info("audio source selected",
		logging.String(logging.FieldEventType, "source_selected"),
		logging.String("source", source.DisplayName()),
		logging.String("mime_type", source.MimeType()),
		logging.Int("bytes", source.Size()),
	)
	return nil
}

// SetMode changes the translation mode used by the next Generate. A pending
// Retry keeps the mode of the request that failed.
func (c *Controller) SetMode(mode subtitles.Mode) error {
	if !mode.Valid() {
		return services.Wrap(services.ErrValidation, "session", "set mode", fmt.Sprintf("unsupported mode %d", int(mode)), nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateProcessing {
		return ErrBusy
	}
	c.mode = mode
	return nil
}

// Generate runs one generation for the active source. started is false when
// the controller is not in a state that allows invoking (including while a
// generation is already in flight); nothing happens in that case. A failed
// generation returns the classified error, which is also kept for Snapshot.
func (c *Controller) Generate(ctx context.Context) (bool, error) {
	return c.run(ctx, EventInvoke)
}

// Retry re-issues the failed request with the same source and mode.
func (c *Controller) Retry(ctx context.Context) (bool, error) {
	return c.run(ctx, EventRetry)
}

func (c *Controller) run(ctx context.Context, event Event) (bool, error) {
	c.mu.Lock()
	if c.source.IsZero() && c.state != StateProcessing {
		c.mu.Unlock()
		return false, ErrNoSource
	}
	next, ok := Transition(c.state, event)
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	c.state = next
	c.document = ""
	c.failure = nil
	c.generation++
	generation := c.generation
	source := c.source
	mode := c.mode
	if event == EventRetry {
		mode = c.requested
	}
	c.requested = mode
	c.mu.Unlock()

	doc, err := c.generator.Generate(ctx, source, mode)

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		c.logger.Info("discarding stale subtitle result",
			logging.String(logging.FieldEventType, "result_discarded"),
			logging.String("source", source.DisplayName()),
		)
		return true, ErrDiscarded
	}
	if err != nil {
		logging.WarnWithContext(c.logger, "subtitle generation failed", "generation_failed",
			logging.Error(err),
			logging.String("kind", string(services.Classify(err))),
			logging.Bool("retryable", services.Retryable(err)),
			logging.String(logging.FieldImpact, "no subtitles for this clip yet"),
		)
		c.state, _ = Transition(c.state, EventFail)
		c.failure = err
		return true, err
	}
	c.state, _ = Transition(c.state, EventSucceed)
	c.document = doc
	return true, nil
}

// Clear returns to Idle immediately. An in-flight request is not aborted; its
// result is discarded when it arrives.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state, _ = Transition(c.state, EventClear)
	c.releasePreviewLocked()
	c.generation++
	c.source = audio.Source{}
	c.document = ""
	c.failure = nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:      c.state,
		Mode:       c.mode,
		SourceName: c.source.DisplayName(),
		Document:   c.document,
	}
	if c.preview != nil {
		snap.PreviewPath = c.preview.Path()
	}
	if c.failure != nil {
		snap.Message = services.UserMessage(c.failure)
		snap.Kind = services.Classify(c.failure)
		snap.Retryable = services.Retryable(c.failure)
	}
	return snap
}

// Export writes the document into dir as <source name>.srt and returns the
// written path.
func (c *Controller) Export(dir string) (string, error) {
	c.mu.Lock()
	if c.state != StateDone || c.document.Empty() {
		c.mu.Unlock()
		return "", ErrNoDocument
	}
	doc := c.document
	name := subtitles.OutputName(c.source.DisplayName())
	c.mu.Unlock()

	path := filepath.Join(dir, name)
	if err := fileutil.WriteFileAtomic(path, doc.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("export subtitles: %w", err)
	}
	c.logger.Info("subtitles exported",
		logging.String(logging.FieldEventType, "subtitles_exported"),
		logging.String("path", path),
		logging.Int("cues", doc.CueCount()),
	)
	return path, nil
}

func (c *Controller) releasePreviewLocked() {
	if c.preview == nil {
		return
	}
	if err := c.preview.Release(); err != nil {
		logging.WarnWithContext(c.logger, "preview release failed", "preview_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a stale preview file may remain in the staging directory"),
		)
	}
	c.preview = nil
}
