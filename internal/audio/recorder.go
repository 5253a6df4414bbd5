package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"audiosub/internal/logging"
	"audiosub/internal/services"
	"audiosub/internal/textutil"
)

const (
	defaultQueueSize = 64
	tickInterval     = time.Second
)

// Device is a capture backend. Start begins streaming encoded audio into
// chunks in arrival order; the device closes chunks when capture ends.
type Device interface {
	Start(ctx context.Context, chunks chan<- []byte) (Stream, error)
}

// Stream is an open capture handle.
type Stream interface {
	// Stop ends capture and returns once the chunk channel is closed. It
	// reports any capture failure other than the stop itself.
	Stop() error
	// Done is closed when capture has ended for any reason.
	Done() <-chan struct{}
}

// RemovalWatcher reports capture hardware disappearing while recording.
type RemovalWatcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// RecorderConfig controls session limits and the cross-process device lock.
type RecorderConfig struct {
	LockPath    string
	MaxDuration time.Duration
	QueueSize   int
	Now         func() time.Time
}

// Recorder hands out at most one active Session at a time.
type Recorder struct {
	device  Device
	watcher RemovalWatcher
	cfg     RecorderConfig
	logger  *slog.Logger

	mu     sync.Mutex
	active *Session
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithRemovalWatcher aborts sessions when the watcher reports a removal.
func WithRemovalWatcher(w RemovalWatcher) RecorderOption {
	return func(r *Recorder) {
		r.watcher = w
	}
}

// NewRecorder builds a recorder around device.
func NewRecorder(device Device, cfg RecorderConfig, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	r := &Recorder{
		device: device,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Active reports whether a session is currently recording.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Start acquires the microphone and begins a session. On failure nothing is
// left acquired and the error carries services.ErrDeviceAccess.
func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, services.Wrap(services.ErrDeviceAccess, "audio", "start recording", "a recording is already active", nil)
	}
	if r.device == nil {
		return nil, services.Wrap(services.ErrDeviceAccess, "audio", "start recording", "no capture device configured", nil)
	}

	var lock *flock.Flock
	if r.cfg.LockPath != "" {
		lock = flock.New(r.cfg.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrDeviceAccess, "audio", "start recording", "acquire device lock", err)
		}
		if !locked {
			return nil, services.Wrap(services.ErrDeviceAccess, "audio", "start recording", "microphone is in use by another audiosub process", nil)
		}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	chunks := make(chan []byte, r.cfg.QueueSize)
	stream, err := r.device.Start(sessionCtx, chunks)
	if err != nil {
		cancel()
		unlock(lock)
		return nil, services.Wrap(services.ErrDeviceAccess, "audio", "start recording", "open capture device", err)
	}

	id := uuid.NewString()
	s := &Session{
		id:        id,
		started:   r.cfg.Now(),
		now:       r.cfg.Now,
		stream:    stream,
		lock:      lock,
		cancel:    cancel,
		ticks:     make(chan time.Duration, 1),
		collected: make(chan struct{}),
		logger:    logging.WithContext(services.WithSessionID(ctx, id), r.logger),
		release:   r.release,
	}
	r.active = s

	go s.collect(chunks)
	s.wg.Add(1)
	go s.tick(sessionCtx)
	if r.watcher != nil {
		r.watchRemovals(sessionCtx, s)
	}
	if r.cfg.MaxDuration > 0 {
		s.limit = time.AfterFunc(r.cfg.MaxDuration, func() {
			s.logger.Info("recording reached maximum duration",
				logging.String(logging.FieldEventType, "recording_limit_reached"),
				logging.Duration("max_duration", r.cfg.MaxDuration),
			)
			s.mu.Lock()
			s.limitReached = true
			s.mu.Unlock()
			s.halt()
		})
	}

	s.logger.Info("recording started",
		logging.String(logging.FieldEventType, "recording_started"),
		logging.Int("queue_size", r.cfg.QueueSize),
	)
	return s, nil
}

func (r *Recorder) watchRemovals(ctx context.Context, s *Session) {
	removals, err := r.watcher.Watch(ctx)
	if err != nil {
		logging.WarnWithContext(s.logger, "device removal watcher unavailable", "hotplug_watch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check netlink permissions"),
			logging.String(logging.FieldImpact, "unplugging the microphone will not stop the recording"),
		)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case device, ok := <-removals:
				if !ok {
					return
				}
				s.fail(services.Wrap(services.ErrDeviceAccess, "audio", "record", "capture device removed", errors.New(device)))
				return
			}
		}
	}()
}

func (r *Recorder) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == s {
		r.active = nil
	}
}

func unlock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

// Session is one active recording. Chunks are appended in arrival order by a
// single collector goroutine.
type Session struct {
	id      string
	started time.Time
	now     func() time.Time
	stream  Stream
	lock    *flock.Flock
	cancel  context.CancelFunc
	limit   *time.Timer
	logger  *slog.Logger
	release func(*Session)

	ticks     chan time.Duration
	collected chan struct{}
	buf       bytes.Buffer
	chunks    int
	wg        sync.WaitGroup

	haltOnce  sync.Once
	streamErr error
	stopOnce  sync.Once
	result    Source
	resultErr error

	mu           sync.Mutex
	failure      error
	limitReached bool
}

// ID is the session correlation identifier.
func (s *Session) ID() string { return s.id }

// Elapsed is the time since the session started.
func (s *Session) Elapsed() time.Duration { return s.now().Sub(s.started) }

// Ticks emits the elapsed time once per second until the session stops. Slow
// readers only see the latest value.
func (s *Session) Ticks() <-chan time.Duration { return s.ticks }

// Done is closed when capture ends, either through Stop or on its own (device
// removal, maximum duration, capture process exit).
func (s *Session) Done() <-chan struct{} { return s.stream.Done() }

// LimitReached reports whether the maximum duration stopped the capture.
func (s *Session) LimitReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limitReached
}

// Stop ends the session and returns the recorded clip. Stop releases the
// device and lock exactly once; later calls return the first result.
func (s *Session) Stop() (Source, error) {
	s.stopOnce.Do(func() {
		s.halt()
		<-s.collected
		if s.limit != nil {
			s.limit.Stop()
		}
		s.cancel()
		s.wg.Wait()
		unlock(s.lock)
		s.release(s)
		s.result, s.resultErr = s.finish()
	})
	return s.result, s.resultErr
}

func (s *Session) finish() (Source, error) {
	s.mu.Lock()
	failure := s.failure
	s.mu.Unlock()

	elapsed := s.Elapsed()
	if failure != nil {
		logging.ErrorWithContext(s.logger, "recording aborted", "recording_failed",
			logging.Error(failure),
			logging.Duration("elapsed", elapsed),
		)
		return Source{}, failure
	}
	if s.buf.Len() == 0 {
		err := services.Wrap(services.ErrDeviceAccess, "audio", "stop recording", "no audio captured", s.streamErr)
		logging.ErrorWithContext(s.logger, "recording produced no audio", "recording_empty", logging.Error(err))
		return Source{}, err
	}
	if s.streamErr != nil {
		logging.WarnWithContext(s.logger, "capture ended with an error", "recording_stream_error",
			logging.Error(s.streamErr),
			logging.String(logging.FieldImpact, "the end of the recording may be truncated"),
		)
	}
	name := RecordingName(s.now())
	s.logger.Info("recording stopped",
		logging.String(logging.FieldEventType, "recording_stopped"),
		logging.String("source", name),
		logging.Int("chunks", s.chunks),
		logging.Int("bytes", s.buf.Len()),
		logging.Duration("elapsed", elapsed),
	)
	return Source{
		data:        s.buf.Bytes(),
		mimeType:    RecordingMimeType,
		displayName: name,
	}, nil
}

// halt stops the hardware stream once.
func (s *Session) halt() {
	s.haltOnce.Do(func() {
		s.streamErr = s.stream.Stop()
	})
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.failure == nil {
		s.failure = err
	}
	s.mu.Unlock()
	logging.WarnWithContext(s.logger, "capture device removed during recording", "recording_device_removed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "recording stopped"),
	)
	s.halt()
}

func (s *Session) collect(chunks <-chan []byte) {
	defer close(s.collected)
	for chunk := range chunks {
		s.buf.Write(chunk)
		s.chunks++
	}
}

func (s *Session) tick(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.ticks)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stream.Done():
			return
		case <-ticker.C:
			elapsed := s.Elapsed().Truncate(time.Second)
			select {
			case s.ticks <- elapsed:
			default:
				select {
				case <-s.ticks:
				default:
				}
				select {
				case s.ticks <- elapsed:
				default:
				}
			}
		}
	}
}

// RecordingName is the display name of a recording finished at t.
func RecordingName(t time.Time) string {
	return fmt.Sprintf("recording-%s", textutil.TimestampToken(t.UTC().Format(time.RFC3339)))
}
