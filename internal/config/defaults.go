package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath       = "~/.config/audiosub/config.toml"
	defaultOutputDir        = "."
	defaultLogDir           = "~/.local/share/audiosub/logs"
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel      = "gemini-2.5-flash"
	defaultFFmpegBinary     = "ffmpeg"
	defaultInputFormat      = "pulse"
	defaultInputDevice      = "default"
	defaultSampleRate       = 48000
	defaultChannels         = 1
	defaultMaxSeconds       = 1800
	defaultChunkQueueSize   = 64
	defaultSubtitleMode     = "transcript"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLockFileName     = "microphone.lock"
	defaultStagingDirSuffix = "audiosub"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			StagingDir: defaultStagingDir(),
			LogDir:     defaultLogDir,
		},
		Gemini: Gemini{
			BaseURL: defaultGeminiBaseURL,
			Model:   defaultGeminiModel,
		},
		Recording: Recording{
			FFmpegBinary:   defaultFFmpegBinary,
			InputFormat:    defaultInputFormat,
			InputDevice:    defaultInputDevice,
			SampleRate:     defaultSampleRate,
			Channels:       defaultChannels,
			MaxSeconds:     defaultMaxSeconds,
			WatchHotplug:   true,
			ChunkQueueSize: defaultChunkQueueSize,
		},
		Subtitles: Subtitles{
			DefaultMode: defaultSubtitleMode,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultStagingDir() string {
	if base, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, defaultStagingDirSuffix)
	}
	return filepath.Join(os.TempDir(), defaultStagingDirSuffix)
}
