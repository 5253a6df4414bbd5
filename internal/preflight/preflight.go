package preflight

import (
	"context"

	"audiosub/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects the optional checks.
type Options struct {
	// CheckModel performs a live request against the model API.
	CheckModel bool
}

// RunAll executes the readiness checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCredential(cfg),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckFFmpeg(cfg.Recording.FFmpegBinary),
	}
	if capture, ok := CheckCaptureDevices(cfg.Recording.InputFormat, soundDeviceDir); ok {
		results = append(results, capture)
	}
	if opts.CheckModel {
		results = append(results, CheckModel(ctx, cfg.GetGemini()))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
