package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"audiosub/internal/config"
	"audiosub/internal/testsupport"
)

const sampleSRT = "1\n00:00:00,500 --> 00:00:02,000\nHello there\n\n2\n00:00:02,500 --> 00:00:04,000\nGeneral Kenobi\n"

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	server     *fakeGemini
}

// setupCLITestEnv writes a config pointing at a fake Gemini server. Capture
// uses avfoundation so readiness checks do not depend on /dev/snd.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"} {
		t.Setenv(name, "")
	}
	server := newFakeGemini(t)

	base := []testsupport.ConfigOption{
		testsupport.WithAPIKey("test-key"),
		testsupport.WithBaseURL(server.URL()),
		withCapture(""),
	}
	cfg := testsupport.NewConfig(t, append(base, opts...)...)
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))

	return &cliTestEnv{
		baseDir:    testsupport.BaseDir(cfg),
		configPath: testsupport.WriteConfigFile(t, cfg),
		outputDir:  cfg.Paths.OutputDir,
		server:     server,
	}
}

// withCapture selects the capture binary; empty writes an `exit 0` stub.
func withCapture(ffmpeg string) testsupport.ConfigOption {
	return func(t testing.TB, base string, cfg *config.Config) {
		if ffmpeg == "" {
			ffmpeg = testsupport.WriteScript(t, filepath.Join(base, "bin", "ffmpeg"), "exit 0")
		}
		cfg.Gemini.Model = "test-model"
		cfg.Recording.FFmpegBinary = ffmpeg
		cfg.Recording.InputFormat = "avfoundation"
		cfg.Recording.InputDevice = ":0"
		cfg.Recording.MaxSeconds = 10
	}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

// fakeGemini answers generateContent with queued responses. Once the queue
// is drained it keeps returning sampleSRT.
type fakeGemini struct {
	srv *httptest.Server

	mu        sync.Mutex
	requests  []map[string]any
	failFirst int
}

func newFakeGemini(t *testing.T) *fakeGemini {
	t.Helper()
	f := &fakeGemini{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGemini) URL() string { return f.srv.URL }

func (f *fakeGemini) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte(`{"name":"models/test-model"}`))
		return
	}
	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)

	f.mu.Lock()
	f.requests = append(f.requests, payload)
	fail := f.failFirst > 0
	if fail {
		f.failFirst--
	}
	f.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"model overloaded","status":"UNAVAILABLE"}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"parts": []any{map[string]any{"text": "```srt\n" + sampleSRT + "```"}}},
			"finishReason": "STOP",
		}},
	})
}

func (f *fakeGemini) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFirst = n
}

func (f *fakeGemini) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGemini) lastMimeType(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	parts := f.requests[len(f.requests)-1]["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	return parts[0].(map[string]any)["inlineData"].(map[string]any)["mimeType"].(string)
}
