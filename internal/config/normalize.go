package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// apiKeyEnvVars lists the environment variables consulted, in order, when the
// config file carries no credential.
var apiKeyEnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGemini()
	if err := c.normalizeRecording(); err != nil {
		return err
	}
	c.normalizeSubtitles()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir()
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		for _, name := range apiKeyEnvVars {
			if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
				c.Gemini.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.Gemini.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gemini.BaseURL), "/")
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
	if c.Gemini.TimeoutSeconds < 0 {
		c.Gemini.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeRecording() error {
	c.Recording.FFmpegBinary = strings.TrimSpace(c.Recording.FFmpegBinary)
	if c.Recording.FFmpegBinary == "" {
		c.Recording.FFmpegBinary = defaultFFmpegBinary
	}
	c.Recording.InputFormat = strings.ToLower(strings.TrimSpace(c.Recording.InputFormat))
	if c.Recording.InputFormat == "" {
		c.Recording.InputFormat = defaultInputFormat
	}
	c.Recording.InputDevice = strings.TrimSpace(c.Recording.InputDevice)
	if c.Recording.InputDevice == "" {
		c.Recording.InputDevice = defaultInputDevice
	}
	if c.Recording.SampleRate <= 0 {
		c.Recording.SampleRate = defaultSampleRate
	}
	if c.Recording.Channels <= 0 {
		c.Recording.Channels = defaultChannels
	}
	if c.Recording.ChunkQueueSize <= 0 {
		c.Recording.ChunkQueueSize = defaultChunkQueueSize
	}
	if strings.TrimSpace(c.Recording.LockPath) == "" {
		c.Recording.LockPath = filepath.Join(c.Paths.StagingDir, defaultLockFileName)
	}
	var err error
	if c.Recording.LockPath, err = expandPath(c.Recording.LockPath); err != nil {
		return fmt.Errorf("recording.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.DefaultMode = strings.ToLower(strings.TrimSpace(c.Subtitles.DefaultMode))
	if c.Subtitles.DefaultMode == "" {
		c.Subtitles.DefaultMode = defaultSubtitleMode
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
