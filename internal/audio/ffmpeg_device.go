package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"audiosub/internal/logging"
)

const (
	defaultChunkSize    = 32 * 1024
	defaultStartupGrace = 500 * time.Millisecond
	stderrTailBytes     = 4096
	stopTimeout         = 5 * time.Second
)

// FFmpegConfig selects the capture input and output encoding.
type FFmpegConfig struct {
	Binary       string
	InputFormat  string
	InputDevice  string
	SampleRate   int
	Channels     int
	ChunkSize    int
	StartupGrace time.Duration
}

// FFmpegDevice records from a system audio input by running ffmpeg and
// reading Opus-in-WebM from its stdout.
type FFmpegDevice struct {
	cfg    FFmpegConfig
	logger *slog.Logger
}

// NewFFmpegDevice returns a capture device driven by cfg.
func NewFFmpegDevice(cfg FFmpegConfig, logger *slog.Logger) *FFmpegDevice {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.StartupGrace <= 0 {
		cfg.StartupGrace = defaultStartupGrace
	}
	return &FFmpegDevice{cfg: cfg, logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

// Args returns the ffmpeg command line used for capture.
func (d *FFmpegDevice) Args() []string {
	args := []string{"-hide_banner", "-nostats", "-loglevel", "error"}
	if format := strings.TrimSpace(d.cfg.InputFormat); format != "" {
		args = append(args, "-f", format)
	}
	device := strings.TrimSpace(d.cfg.InputDevice)
	if device == "" {
		device = "default"
	}
	args = append(args, "-i", device)
	if d.cfg.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(d.cfg.Channels))
	}
	if d.cfg.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(d.cfg.SampleRate))
	}
	return append(args, "-c:a", "libopus", "-f", "webm", "pipe:1")
}

// Start launches ffmpeg. Failures that surface within the startup grace
// period (missing device, permission denied) are returned synchronously.
func (d *FFmpegDevice) Start(ctx context.Context, chunks chan<- []byte) (Stream, error) {
	cmd := exec.CommandContext(ctx, d.cfg.Binary, d.Args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", d.cfg.Binary, err)
	}
	d.logger.Debug("ffmpeg capture started",
		logging.String("binary", d.cfg.Binary),
		logging.String("args", strings.Join(d.Args(), " ")),
	)

	stream := &ffmpegStream{cmd: cmd, done: make(chan struct{})}
	group := new(errgroup.Group)
	group.Go(func() error {
		return pumpChunks(stdout, chunks, d.cfg.ChunkSize)
	})
	group.Go(func() error {
		stream.stderr = readTail(stderr, stderrTailBytes)
		return nil
	})
	go func() {
		readErr := group.Wait()
		waitErr := cmd.Wait()
		close(chunks)
		stream.finish(readErr, waitErr)
	}()

	select {
	case <-stream.done:
		if err := stream.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("ffmpeg exited before capturing audio")
	case <-time.After(d.cfg.StartupGrace):
		return stream, nil
	}
}

type ffmpegStream struct {
	cmd      *exec.Cmd
	done     chan struct{}
	stopping atomic.Bool
	stderr   string

	mu  sync.Mutex
	err error
}

func (s *ffmpegStream) finish(readErr, waitErr error) {
	s.mu.Lock()
	switch {
	case s.stopping.Load():
		s.err = readErr
	case waitErr != nil:
		s.err = fmt.Errorf("ffmpeg capture: %w%s", waitErr, stderrSuffix(s.stderr))
	case readErr != nil:
		s.err = readErr
	}
	s.mu.Unlock()
	close(s.done)
}

func (s *ffmpegStream) Done() <-chan struct{} { return s.done }

func (s *ffmpegStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop interrupts ffmpeg so it finalizes the WebM container, then waits for
// it to exit; a stuck process is killed after stopTimeout.
func (s *ffmpegStream) Stop() error {
	select {
	case <-s.done:
		return s.Err()
	default:
	}
	s.stopping.Store(true)
	if s.cmd.Process != nil {
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			_ = s.cmd.Process.Kill()
		}
	}
	select {
	case <-s.done:
	case <-time.After(stopTimeout):
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		<-s.done
	}
	return s.Err()
}

func pumpChunks(r io.Reader, chunks chan<- []byte, size int) error {
	buf := make([]byte, size)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			chunks <- chunk
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read ffmpeg output: %w", err)
		}
	}
}

func readTail(r io.Reader, limit int) string {
	var tail bytes.Buffer
	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			tail.Write(buf[:n])
			if extra := tail.Len() - limit; extra > 0 {
				tail.Next(extra)
			}
		}
		if err != nil {
			return strings.TrimSpace(tail.String())
		}
	}
}

func stderrSuffix(stderr string) string {
	if stderr == "" {
		return ""
	}
	return ": " + stderr
}
