package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	apiKeyHeader   = "x-goog-api-key"

	statusExhausted = "RESOURCE_EXHAUSTED"
)

// blockingFinishReasons stop generation on content-policy grounds.
var blockingFinishReasons = []string{"SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "SPII", "IMAGE_SAFETY"}

// Config captures the runtime settings required to talk to the model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the Gemini generateContent REST endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client using the supplied configuration. A zero
// TimeoutSeconds leaves the request bounded only by the transport defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	var timeout time.Duration
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.cfg.Model
}

// InlineAudio is base64-encoded audio sent inline with the request.
type InlineAudio struct {
	MimeType string
	Data     string
}

// Request is a single multimodal generation request.
type Request struct {
	SystemInstruction string
	Prompt            string
	Audio             InlineAudio
	Temperature       float64
}

// Response is the text answer of the first candidate.
type Response struct {
	Text         string
	FinishReason string
}

// APIError reports a non-2xx response or an error object in the body.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	status := e.Status
	if status == "" {
		status = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("gemini request: http %d %s: %s", e.StatusCode, status, strings.TrimSpace(e.Message))
}

// RateLimited reports whether the service throttled the request.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || strings.EqualFold(e.Status, statusExhausted)
}

// BlockedError reports that the model refused to answer, either because the
// prompt was blocked or because generation stopped for safety.
type BlockedError struct {
	BlockReason  string
	FinishReason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("gemini request: blocked (block_reason=%q, finish_reason=%q)", e.BlockReason, e.FinishReason)
}

// Safety reports whether the block was raised on content-policy grounds.
func (e *BlockedError) Safety() bool {
	return e.BlockReason != "" || blockingFinish(e.FinishReason)
}

func blockingFinish(reason string) bool {
	return slices.Contains(blockingFinishReasons, strings.ToUpper(strings.TrimSpace(reason)))
}

// GenerateContent issues one generateContent call. It never retries; the
// caller decides whether a failure is worth repeating.
func (c *Client) GenerateContent(ctx context.Context, req Request) (Response, error) {
	var empty Response
	if c.cfg.APIKey == "" {
		return empty, errors.New("gemini request: api key required")
	}
	if strings.TrimSpace(req.Audio.Data) == "" {
		return empty, errors.New("gemini request: audio payload required")
	}
	payload := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: req.Audio.MimeType, Data: req.Audio.Data}},
				{Text: req.Prompt},
			},
		}},
		GenerationConfig: &generationConfig{Temperature: req.Temperature},
	}
	if system := strings.TrimSpace(req.SystemInstruction); system != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	parsed, err := c.send(ctx, payload)
	if err != nil {
		return empty, err
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return empty, &BlockedError{BlockReason: parsed.PromptFeedback.BlockReason}
	}
	if len(parsed.Candidates) == 0 {
		return empty, nil
	}
	candidate := parsed.Candidates[0]
	text := candidateText(candidate)
	if text == "" && blockingFinish(candidate.FinishReason) {
		return empty, &BlockedError{FinishReason: candidate.FinishReason}
	}
	return Response{Text: text, FinishReason: candidate.FinishReason}, nil
}

type generateContentRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
	Error          *apiErrorBody   `json:"error"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type apiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func candidateText(c candidate) string {
	var b strings.Builder
	for _, p := range c.Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// HealthCheck fetches the model resource to verify the key and model name
// without spending generation quota.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("gemini health: api key required")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", c.cfg.Model)
	if err != nil {
		return fmt.Errorf("gemini health: build url: %w", err)
	}
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	var model struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &model); err != nil {
		return fmt.Errorf("gemini health: decode response: %w", err)
	}
	if !strings.HasSuffix(model.Name, c.cfg.Model) {
		return fmt.Errorf("gemini health: unexpected model %q", model.Name)
	}
	return nil
}

func (c *Client) send(ctx context.Context, payload generateContentRequest) (generateContentResponse, error) {
	var parsed generateContentResponse
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", c.cfg.Model+":generateContent")
	if err != nil {
		return parsed, fmt.Errorf("gemini request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return parsed, fmt.Errorf("gemini request: encode body: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, endpoint, encoded)
	if err != nil {
		return parsed, err
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return parsed, fmt.Errorf("gemini request: decode response: %w (response_snippet=%s)", err, summarizePayloadSnippet(string(body)))
	}
	if parsed.Error != nil {
		return parsed, &APIError{
			StatusCode: parsed.Error.Code,
			Status:     parsed.Error.Status,
			Message:    strings.TrimSpace(parsed.Error.Message),
		}
	}
	return parsed, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("gemini request: new request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    summarizePayloadSnippet(string(body)),
		}
		var wrapped generateContentResponse
		if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil {
			apiErr.Status = wrapped.Error.Status
			apiErr.Message = strings.TrimSpace(wrapped.Error.Message)
		}
		apiErr.RetryAfter, _ = parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, apiErr
	}
	return body, nil
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
