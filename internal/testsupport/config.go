// Package testsupport builds configs and fixture files for tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"audiosub/internal/config"
)

// ConfigOption customizes the config returned by NewConfig.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns the default config rooted in a fresh temp directory: a
// test API key, output/staging/log directories under the temp dir, and
// hotplug watching disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Gemini.APIKey = "test"
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Recording.LockPath = filepath.Join(base, "staging", "microphone.lock")
	cfg.Recording.WatchHotplug = false

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// WithAPIKey replaces the model API key; an empty key leaves it unset.
func WithAPIKey(key string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Gemini.APIKey = key
	}
}

// WithBaseURL points the model client at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Gemini.BaseURL = url
	}
}

// WithDirectories creates the output, staging and log directories.
func WithDirectories() ConfigOption {
	return func(t testing.TB, _ string, cfg *config.Config) {
		if err := cfg.EnsureDirectories(); err != nil {
			t.Fatalf("ensure directories: %v", err)
		}
	}
}

// WithStubbedBinaries writes `exit 0` scripts for names (ffmpeg when empty)
// into a bin directory that is prepended to PATH for the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		binDir := filepath.Join(base, "bin")
		for _, name := range names {
			WriteScript(t, filepath.Join(binDir, name), "exit 0")
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WriteConfigFile encodes cfg as TOML next to its staging directory and
// returns the file path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "audiosub.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// BaseDir returns the temp directory backing a NewConfig config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
