package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audiosub/internal/testsupport"
)

func TestGenerateWritesSubtitles(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "interview.wav")
	testsupport.WriteWAV(t, input, 64)

	out, _, err := runCLI(t, []string{"generate", input, "--mode", "english"}, env.configPath, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	requireContains(t, out, "Wrote 2 cues (Translate to English)")

	data, err := os.ReadFile(filepath.Join(env.outputDir, "interview.srt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != sampleSRT {
		t.Fatalf("unexpected subtitles %q", data)
	}
	if got := env.server.lastMimeType(t); !strings.HasPrefix(got, "audio/") {
		t.Fatalf("expected audio mime type, got %q", got)
	}
	if entries, _ := os.ReadDir(filepath.Join(env.baseDir, "staging")); len(entries) != 0 {
		t.Fatalf("expected previews released, found %d files", len(entries))
	}
}

func TestGenerateOutputFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "talk.wav")
	testsupport.WriteWAV(t, input, 8)
	target := filepath.Join(env.baseDir, "custom")

	if _, _, err := runCLI(t, []string{"generate", input, "-o", target}, env.configPath, ""); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "talk.srt")); err != nil {
		t.Fatalf("expected output in custom dir: %v", err)
	}
}

func TestGenerateWithoutAPIKeyMakesNoRequest(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIKey(""))
	input := filepath.Join(env.baseDir, "clip.wav")
	testsupport.WriteWAV(t, input, 8)

	_, _, err := runCLI(t, []string{"generate", input}, env.configPath, "")
	if err == nil {
		t.Fatal("expected error without api key")
	}
	requireContains(t, err.Error(), "No API key is configured")
	if env.server.calls() != 0 {
		t.Fatalf("expected no model requests, got %d", env.server.calls())
	}
}

func TestGenerateRetriesRetryableFailure(t *testing.T) {
	retryBackoff = 0
	t.Cleanup(func() { retryBackoff = defaultRetryBackoff })

	env := setupCLITestEnv(t)
	env.server.failNext(1)
	input := filepath.Join(env.baseDir, "clip.wav")
	testsupport.WriteWAV(t, input, 8)

	if _, _, err := runCLI(t, []string{"generate", input}, env.configPath, ""); err == nil {
		t.Fatal("expected failure without retries")
	}

	env.server.failNext(1)
	out, _, err := runCLI(t, []string{"generate", input, "--retries", "1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("generate with retry: %v", err)
	}
	requireContains(t, out, "Wrote 2 cues")
	if env.server.calls() != 3 {
		t.Fatalf("expected 3 model requests, got %d", env.server.calls())
	}
}

func TestGenerateReportsModelFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.server.failNext(1)
	input := filepath.Join(env.baseDir, "clip.wav")
	testsupport.WriteWAV(t, input, 8)

	_, _, err := runCLI(t, []string{"generate", input}, env.configPath, "")
	if err == nil {
		t.Fatal("expected failure")
	}
	requireContains(t, err.Error(), "model overloaded")
	if _, statErr := os.Stat(filepath.Join(env.outputDir, "clip.srt")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat err %v", statErr)
	}
}

func TestGenerateRejectsUnknownMode(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "clip.wav")
	testsupport.WriteWAV(t, input, 8)

	if _, _, err := runCLI(t, []string{"generate", input, "--mode", "klingon"}, env.configPath, ""); err == nil {
		t.Fatal("expected unknown mode error")
	}
	if env.server.calls() != 0 {
		t.Fatalf("expected no model requests, got %d", env.server.calls())
	}
}

func TestGenerateWarnsOnNonAudio(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "notes.txt")
	if err := os.WriteFile(input, []byte("plain text, not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := runCLI(t, []string{"generate", input}, env.configPath, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	requireContains(t, stderr, "not an audio type")
	if _, err := os.Stat(filepath.Join(env.outputDir, "notes.srt")); err != nil {
		t.Fatalf("expected output for non-audio input: %v", err)
	}
}

func TestRecordStopsOnEnterAndGenerates(t *testing.T) {
	script := testsupport.WriteScript(t, filepath.Join(t.TempDir(), "fake-ffmpeg"), "printf 'webm-bytes'\nexec sleep 30")
	env := setupCLITestEnv(t, withCapture(script))

	out, stderr, err := runCLI(t, []string{"record", "--mode", "bilingual", "--duration", "5s"}, env.configPath, "\n")
	if err != nil {
		t.Fatalf("record: %v (stderr %s)", err, stderr)
	}
	requireContains(t, stderr, "Captured recording-")
	requireContains(t, out, "Wrote 2 cues (Bilingual (Chinese + English))")
	if got := env.server.lastMimeType(t); got != "audio/webm" {
		t.Fatalf("expected audio/webm, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(env.outputDir, "recording-*.srt"))
	if len(matches) != 1 {
		t.Fatalf("expected one recording subtitle file, got %v", matches)
	}
}

func TestRecordMissingFFmpeg(t *testing.T) {
	env := setupCLITestEnv(t, withCapture("/nonexistent/ffmpeg"))

	_, _, err := runCLI(t, []string{"record", "--duration", "1s"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected error without ffmpeg")
	}
	requireContains(t, err.Error(), "Cannot access the microphone")
	if env.server.calls() != 0 {
		t.Fatalf("expected no model requests, got %d", env.server.calls())
	}
}

func TestModesListsAllModes(t *testing.T) {
	out, _, err := runCLI(t, []string{"modes"}, "", "")
	if err != nil {
		t.Fatalf("modes: %v", err)
	}
	for _, want := range []string{"transcript", "english", "chinese", "bilingual", "Translate to Chinese (Simplified)"} {
		requireContains(t, out, want)
	}
}

func TestStatusReportsReadiness(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status", "--check-model"}, env.configPath, "")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "test-model")
	requireContains(t, out, "== Readiness ==")
	requireContains(t, out, "Gemini API key:")
	requireContains(t, out, "[OK]")
	if strings.Contains(out, "[ERROR]") {
		t.Fatalf("unexpected failing check:\n%s", out)
	}
}

func TestStatusFailsWithoutAPIKey(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIKey(""))

	out, _, err := runCLI(t, []string{"status"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected readiness failure")
	}
	requireContains(t, out, "[ERROR] missing")
	requireContains(t, out, "not checked (use --check-model)")
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", target}, "", ""); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", target, "--overwrite"}, "", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}
