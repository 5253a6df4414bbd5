package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"audiosub/internal/audio"
	"audiosub/internal/config"
	"audiosub/internal/deps"
	"audiosub/internal/services"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var outputFlag string
	var retries int
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone and generate subtitles",
		Long: "Record from the configured capture input until Enter or Ctrl-C is pressed " +
			"(or --duration elapses), then generate subtitles for the recording.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := ctx.resolveMode(modeFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			recorder, limit, err := newRecorder(cfg, logger, duration)
			if err != nil {
				return errors.New(services.UserMessage(err))
			}

			source, err := captureSource(cmd, recorder, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Captured %s (%s)\n", source.DisplayName(), formatBytes(int64(source.Size())))
			return ctx.transcribe(cmd, source, mode, transcribeOptions{OutputDir: outputFlag, Retries: retries})
		},
	}

	addTranscribeFlags(cmd, &modeFlag, &outputFlag, &retries)
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop automatically after this long (e.g. 30s, 2m)")
	return cmd
}

// newRecorder builds the microphone recorder from config. The effective limit
// is the shorter of limit and recording.max_seconds.
func newRecorder(cfg *config.Config, logger *slog.Logger, limit time.Duration) (*audio.Recorder, time.Duration, error) {
	ffmpeg := deps.ResolveFFmpeg(cfg.Recording.FFmpegBinary)
	if !ffmpeg.Available {
		return nil, 0, services.Wrap(services.ErrDeviceAccess, "record", "resolve ffmpeg", ffmpeg.Detail, nil)
	}

	maxDuration := time.Duration(cfg.Recording.MaxSeconds) * time.Second
	if limit > 0 && (maxDuration <= 0 || limit < maxDuration) {
		maxDuration = limit
	}

	device := audio.NewFFmpegDevice(audio.FFmpegConfig{
		Binary:      ffmpeg.Command,
		InputFormat: cfg.Recording.InputFormat,
		InputDevice: cfg.Recording.InputDevice,
		SampleRate:  cfg.Recording.SampleRate,
		Channels:    cfg.Recording.Channels,
	}, logger)

	var opts []audio.RecorderOption
	if cfg.Recording.WatchHotplug {
		opts = append(opts, audio.WithRemovalWatcher(audio.NewUdevWatcher(logger)))
	}
	recorder := audio.NewRecorder(device, audio.RecorderConfig{
		LockPath:    cfg.Recording.LockPath,
		MaxDuration: maxDuration,
		QueueSize:   cfg.Recording.ChunkQueueSize,
	}, logger, opts...)
	return recorder, maxDuration, nil
}

// captureSource records until the user stops, the limit passes or capture
// ends on its own.
func captureSource(cmd *cobra.Command, recorder *audio.Recorder, limit time.Duration) (audio.Source, error) {
	sess, err := recorder.Start(cmd.Context())
	if err != nil {
		return audio.Source{}, errors.New(services.UserMessage(err))
	}

	stopCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errOut := cmd.ErrOrStderr()
	fmt.Fprintln(errOut, "Recording. Press Enter or Ctrl-C to stop.")
	spin := startSpinner(errOut, "Recording 0s")
	enter := waitForEnter(cmd.InOrStdin())
	ticks := sess.Ticks()

wait:
	for {
		select {
		case <-stopCtx.Done():
			break wait
		case <-enter:
			break wait
		case <-sess.Done():
			break wait
		case elapsed, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			spin.Describe(fmt.Sprintf("Recording %s", elapsed))
		}
	}
	spin.Stop()

	source, err := sess.Stop()
	if err != nil {
		return audio.Source{}, errors.New(services.UserMessage(err))
	}
	if sess.LimitReached() {
		fmt.Fprintf(errOut, "Stopped at the %s recording limit\n", limit)
	}
	return source, nil
}

// waitForEnter closes the returned channel when a line is read. End of input
// leaves it open so non-interactive runs rely on --duration or a signal.
func waitForEnter(r io.Reader) <-chan struct{} {
	ch := make(chan struct{})
	if r == nil {
		return ch
	}
	go func() {
		if _, err := bufio.NewReader(r).ReadString('\n'); err == nil {
			close(ch)
		}
	}()
	return ch
}
