package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"audiosub/internal/services/gemini"
)

func sampleRequest() gemini.Request {
	return gemini.Request{
		SystemInstruction: "You are a subtitle engine.",
		Prompt:            "Transcribe.",
		Audio:             gemini.InlineAudio{MimeType: "audio/mpeg", Data: "AAEC"},
		Temperature:       0.2,
	}
}

func TestGenerateContentSendsInlineAudio(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "secret" {
			t.Fatalf("expected api key header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"parts": []any{
							map[string]any{"text": "1\n00:00:00,000 --> "},
							map[string]any{"text": "00:00:01,000\nHi\n"},
						},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	defer server.Close()

	client := gemini.NewClient(gemini.Config{APIKey: "secret", BaseURL: server.URL + "/", Model: "test-model"})
	resp, err := client.GenerateContent(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if resp.Text != "1\n00:00:00,000 --> 00:00:01,000\nHi" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.FinishReason != "STOP" {
		t.Fatalf("unexpected finish reason %q", resp.FinishReason)
	}

	system := captured["systemInstruction"].(map[string]any)["parts"].([]any)[0].(map[string]any)
	if system["text"] != "You are a subtitle engine." {
		t.Fatalf("unexpected system instruction %v", system)
	}
	parts := captured["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected audio and text parts, got %d", len(parts))
	}
	inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
	if inline["mimeType"] != "audio/mpeg" || inline["data"] != "AAEC" {
		t.Fatalf("unexpected inline data %v", inline)
	}
	if parts[1].(map[string]any)["text"] != "Transcribe." {
		t.Fatalf("unexpected prompt part %v", parts[1])
	}
	temp := captured["generationConfig"].(map[string]any)["temperature"]
	if temp != 0.2 {
		t.Fatalf("unexpected temperature %v", temp)
	}
}

func TestGenerateContentRateLimitError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "message": "Quota exceeded", "status": "RESOURCE_EXHAUSTED"},
		})
	}))
	defer server.Close()

	client := gemini.NewClient(gemini.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := client.GenerateContent(context.Background(), sampleRequest())
	var apiErr *gemini.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.RateLimited() {
		t.Fatalf("expected rate limit, got %+v", apiErr)
	}
	if apiErr.RetryAfter != 7*time.Second {
		t.Fatalf("unexpected retry-after %v", apiErr.RetryAfter)
	}
	if apiErr.Message != "Quota exceeded" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
	if calls != 1 {
		t.Fatalf("expected a single request, got %d", calls)
	}
}

func TestGenerateContentServerErrorSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("boom ", 100), http.StatusInternalServerError)
	}))
	defer server.Close()

	client := gemini.NewClient(gemini.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := client.GenerateContent(context.Background(), sampleRequest())
	var apiErr *gemini.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.RateLimited() {
		t.Fatal("500 should not be a rate limit")
	}
	if !strings.HasSuffix(apiErr.Message, "...") {
		t.Fatalf("expected truncated snippet, got %q", apiErr.Message)
	}
}

func TestGenerateContentPromptBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"promptFeedback": map[string]any{"blockReason": "SAFETY"},
		})
	}))
	defer server.Close()

	client := gemini.NewClient(gemini.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := client.GenerateContent(context.Background(), sampleRequest())
	var blocked *gemini.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected BlockedError, got %v", err)
	}
	if !blocked.Safety() || blocked.BlockReason != "SAFETY" {
		t.Fatalf("unexpected block %+v", blocked)
	}
}

func TestGenerateContentSafetyFinishWithoutText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"finishReason": "SAFETY"}},
		})
	}))
	defer server.Close()

	client := gemini.NewClient(gemini.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	_, err := client.GenerateContent(context.Background(), sampleRequest())
	var blocked *gemini.BlockedError
	if !errors.As(err, &blocked) || blocked.FinishReason != "SAFETY" {
		t.Fatalf("expected safety block, got %v", err)
	}
}

func TestGenerateContentPolicyFinishReasonsAreBlocks(t *testing.T) {
	for _, reason := range []string{"PROHIBITED_CONTENT", "BLOCKLIST", "SPII"} {
		t.Run(reason, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"candidates": []any{map[string]any{"finishReason": reason}},
				})
			}))
			defer server.Close()

			client := gemini.NewClient(gemini.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
			_, err := client.GenerateContent(context.Background(), sampleRequest())
			var blocked *gemini.BlockedError
			if !errors.As(err, &blocked) {
				t.Fatalf("expected BlockedError, got %v", err)
			}
			if !blocked.Safety() || blocked.FinishReason != reason {
				t.Fatalf("unexpected block %+v", blocked)
			}
		})
	}
}

func TestGenerateContentMaxTokensWithoutTextIsNotBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"finishReason": "MAX_TOKENS"}},
		})
	}))
	defer server.Close()

	client := gemini.NewClient(gemini.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	resp, err := client.GenerateContent(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if resp.Text != "" || resp.FinishReason != "MAX_TOKENS" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGenerateContentNoCandidatesIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := gemini.NewClient(gemini.Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	resp, err := client.GenerateContent(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if resp.Text != "" {
		t.Fatalf("expected empty text, got %q", resp.Text)
	}
}

func TestGenerateContentRequiresAPIKey(t *testing.T) {
	client := gemini.NewClient(gemini.Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.GenerateContent(context.Background(), sampleRequest()); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := gemini.NewClient(gemini.Config{APIKey: "k"})
	if client.Model() != "gemini-2.5-flash" {
		t.Fatalf("unexpected default model %q", client.Model())
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/models/test-model" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "good" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"models/test-model"}`))
	}))
	defer server.Close()

	good := gemini.NewClient(gemini.Config{APIKey: "good", BaseURL: server.URL, Model: "test-model"})
	if err := good.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}

	bad := gemini.NewClient(gemini.Config{APIKey: "bad", BaseURL: server.URL, Model: "test-model"})
	err := bad.HealthCheck(context.Background())
	var apiErr *gemini.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 APIError, got %v", err)
	}
	if apiErr.Message != "API key not valid" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}
