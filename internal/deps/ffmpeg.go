package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpeg reports the FFmpeg binary used for microphone capture.
//
// An explicitly configured binary wins. Otherwise an ffmpeg sitting next to the
// audiosub executable is preferred over the one on PATH, so bundled installs
// keep working when PATH lacks ffmpeg.
func ResolveFFmpeg(configured string) Status {
	return resolveFFmpeg(configured, executableDir())
}

func resolveFFmpeg(configured, selfDir string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Captures microphone audio",
	}

	ffmpegName := "ffmpeg"
	if bin := strings.TrimSpace(configured); bin != "" && bin != ffmpegName {
		result.Command = bin
		if resolved, err := exec.LookPath(bin); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
		result.Detail = fmt.Sprintf("binary %q not found", bin)
		return result
	}

	if candidate, ok := sidecarCandidate(selfDir); ok {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}

	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found", ffmpegName)
	return result
}

func executableDir() string {
	self, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(self)
}

func sidecarCandidate(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
