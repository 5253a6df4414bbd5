package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// knownModes mirrors the keys accepted by subtitles.ParseMode.
var knownModes = map[string]struct{}{
	"transcript": {},
	"english":    {},
	"chinese":    {},
	"bilingual":  {},
}

// Validate ensures the configuration is usable. A missing API key is not a
// validation failure; subtitle generation rejects it when it is attempted.
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateGemini() error {
	parsed, err := url.Parse(c.Gemini.BaseURL)
	if err != nil {
		return fmt.Errorf("gemini.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("gemini.base_url: unsupported scheme %q", parsed.Scheme)
	}
	if strings.ContainsAny(c.Gemini.Model, "/?# ") {
		return fmt.Errorf("gemini.model: invalid model name %q", c.Gemini.Model)
	}
	return nil
}

func (c *Config) validateRecording() error {
	if c.Recording.MaxSeconds < 0 {
		return errors.New("recording.max_seconds must be zero (unlimited) or positive")
	}
	if c.Recording.Channels > 2 {
		return fmt.Errorf("recording.channels: unsupported channel count %d", c.Recording.Channels)
	}
	switch c.Recording.InputFormat {
	case "pulse", "alsa", "avfoundation", "dshow":
	default:
		return fmt.Errorf("recording.input_format: unsupported value %q", c.Recording.InputFormat)
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if _, ok := knownModes[c.Subtitles.DefaultMode]; !ok {
		return fmt.Errorf("subtitles.default_mode: unsupported value %q", c.Subtitles.DefaultMode)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
