package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"audiosub/internal/config"
	"audiosub/internal/logging"
	"audiosub/internal/services/gemini"
	"audiosub/internal/session"
	"audiosub/internal/subtitles"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		var level string
		if c.logLevelFlag != nil {
			level = *c.logLevelFlag
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, level)
	})
	return c.logger, c.loggerErr
}

// resolveMode picks the flag value when set, else the configured default.
func (c *commandContext) resolveMode(flagValue string) (subtitles.Mode, error) {
	key := strings.TrimSpace(flagValue)
	if key == "" {
		if cfg, err := c.ensureConfig(); err == nil {
			key = cfg.Subtitles.DefaultMode
		}
	}
	if key == "" {
		return subtitles.ModeTranscript, nil
	}
	return subtitles.ParseMode(key)
}

// newController wires the Gemini client, generator and preview store for one
// command invocation.
func (c *commandContext) newController(mode subtitles.Mode) (*session.Controller, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	gem := cfg.GetGemini()
	client := gemini.NewClient(gemini.Config{
		APIKey:         gem.APIKey,
		BaseURL:        gem.BaseURL,
		Model:          gem.Model,
		TimeoutSeconds: gem.TimeoutSeconds,
	})
	generator := subtitles.NewGenerator(subtitles.GeneratorConfig{APIKey: gem.APIKey}, client, logger)
	previews := session.NewTempPreviewStore(cfg.Paths.StagingDir)
	return session.NewController(generator, previews, mode, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
