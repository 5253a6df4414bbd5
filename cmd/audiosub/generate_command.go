package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"audiosub/internal/audio"
	"audiosub/internal/config"
	"audiosub/internal/services"
	"audiosub/internal/services/gemini"
	"audiosub/internal/subtitles"
)

const (
	defaultRetryBackoff = 2 * time.Second
	maxRetryAfter       = 2 * time.Minute
)

// retryBackoff is multiplied by the attempt number between retries.
var retryBackoff = defaultRetryBackoff

type transcribeOptions struct {
	OutputDir string
	Retries   int
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var outputFlag string
	var retries int

	cmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Generate subtitles for an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := ctx.resolveMode(modeFlag)
			if err != nil {
				return err
			}
			source, err := audio.SelectFile(args[0])
			if err != nil {
				return err
			}
			warnSource(cmd.ErrOrStderr(), source)
			return ctx.transcribe(cmd, source, mode, transcribeOptions{OutputDir: outputFlag, Retries: retries})
		},
	}

	addTranscribeFlags(cmd, &modeFlag, &outputFlag, &retries)
	return cmd
}

func addTranscribeFlags(cmd *cobra.Command, modeFlag, outputFlag *string, retries *int) {
	cmd.Flags().StringVarP(modeFlag, "mode", "m", "", "Translation mode: "+strings.Join(modeKeys(), ", "))
	cmd.Flags().StringVarP(outputFlag, "output", "o", "", "Directory for the .srt file (defaults to paths.output_dir)")
	cmd.Flags().IntVar(retries, "retries", 0, "Retry retryable failures this many times")
}

func modeKeys() []string {
	keys := make([]string, 0, len(subtitles.Modes))
	for _, mode := range subtitles.Modes {
		keys = append(keys, mode.String())
	}
	return keys
}

func warnSource(w io.Writer, source audio.Source) {
	if !source.IsAudio() {
		fmt.Fprintf(w, "Warning: %s is %s, not an audio type; sending it anyway\n", source.DisplayName(), source.MimeType())
	}
	if source.ExceedsAdvisorySize() {
		fmt.Fprintf(w, "Warning: %s is %s, above the %s inline upload limit; the request may be rejected\n",
			source.DisplayName(), formatBytes(int64(source.Size())), formatBytes(audio.AdvisoryMaxBytes))
	}
}

// transcribe runs one source through the controller and exports the result.
func (c *commandContext) transcribe(cmd *cobra.Command, source audio.Source, mode subtitles.Mode, opts transcribeOptions) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	controller, err := c.newController(mode)
	if err != nil {
		return err
	}
	defer controller.Clear()

	if err := controller.Select(source); err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spin := startSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Generating %s subtitles for %s", mode.Label(), source.DisplayName()))
	_, err = controller.Generate(runCtx)
	for attempt := 1; err != nil && attempt <= opts.Retries && controller.Snapshot().Retryable; attempt++ {
		if waitErr := sleepContext(runCtx, retryDelay(err, attempt)); waitErr != nil {
			break
		}
		spin.Describe(fmt.Sprintf("Retrying %s subtitles (%d/%d)", mode.Label(), attempt, opts.Retries))
		_, err = controller.Retry(runCtx)
	}
	spin.Stop()

	if err != nil {
		if runCtx.Err() != nil {
			return context.Canceled
		}
		if snap := controller.Snapshot(); snap.Message != "" {
			return errors.New(snap.Message)
		}
		return errors.New(services.UserMessage(err))
	}

	dir, err := resolveOutputDir(opts.OutputDir, cfg)
	if err != nil {
		return err
	}
	path, err := controller.Export(dir)
	if err != nil {
		return err
	}

	doc := controller.Snapshot().Document
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %d cues (%s) to %s\n", doc.CueCount(), mode.Label(), path)
	if first, last, ok := doc.Span(); ok {
		fmt.Fprintf(out, "Span: %s to %s\n", first, last)
	}
	return nil
}

func resolveOutputDir(flagValue string, cfg *config.Config) (string, error) {
	dir := strings.TrimSpace(flagValue)
	if dir == "" {
		return cfg.Paths.OutputDir, nil
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %q: %w", expanded, err)
	}
	return expanded, nil
}

// retryDelay is the linear backoff for attempt, stretched to the server's
// Retry-After hint when one was sent.
func retryDelay(err error, attempt int) time.Duration {
	delay := time.Duration(attempt) * retryBackoff
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		delay = max(delay, min(apiErr.RetryAfter, maxRetryAfter))
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
