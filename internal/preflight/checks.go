package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"audiosub/internal/config"
	"audiosub/internal/deps"
	"audiosub/internal/services/gemini"
)

const soundDeviceDir = "/dev/snd"

// CheckCredential reports whether a model API key is configured.
func CheckCredential(cfg *config.Config) Result {
	const name = "Gemini API key"
	if !cfg.HasCredential() {
		return Result{Name: name, Detail: "missing (set gemini.api_key or GEMINI_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckModel verifies that the model API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckModel(ctx context.Context, cfg config.GeminiConfig) Result {
	name := "Gemini model"
	if cfg.Model != "" {
		name = fmt.Sprintf("Gemini model (%s)", cfg.Model)
	}
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := gemini.NewClient(gemini.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeModelError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckFFmpeg reports whether the capture binary can be resolved.
func CheckFFmpeg(configured string) Result {
	status := deps.ResolveFFmpeg(configured)
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail + " (recording unavailable; file input still works)"}
	}
	return Result{Name: status.Name, Passed: true, Detail: status.Command}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCaptureDevices looks for ALSA capture nodes. ok is false when the
// input format does not go through ALSA device nodes, so the check does not
// apply.
func CheckCaptureDevices(inputFormat, dir string) (Result, bool) {
	const name = "Capture devices"
	switch strings.ToLower(strings.TrimSpace(inputFormat)) {
	case "pulse", "alsa":
	default:
		return Result{}, false
	}
	matches, err := filepath.Glob(filepath.Join(dir, "pcmC*D*c"))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("scan %s: %v", dir, err)}, true
	}
	if len(matches) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("no capture devices under %s", dir)}, true
	}
	if err := unix.Access(matches[0], unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v; is the user in the audio group?)", matches[0], err)}, true
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d found", len(matches))}, true
}

// summarizeModelError produces a human-readable summary for model check failures.
func summarizeModelError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (model API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (model API unreachable)"
	}
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 400 || apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return fmt.Sprintf("auth failed (%s)", apiErr.Message)
		case apiErr.StatusCode == 404:
			return "model not found"
		case apiErr.RateLimited():
			return "rate limited (key is valid)"
		}
	}
	return err.Error()
}
