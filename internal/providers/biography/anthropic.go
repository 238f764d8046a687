package biography

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicVersion        = "2023-06-01"
	anthropicDefaultTimeout = 120 * time.Second
)

// AnthropicOptions configures the Anthropic messages client.
type AnthropicOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
	Fallback   Generator
}

// AnthropicWriter generates biographies through the Anthropic messages API
// and falls back to a synthetic writer when credentials are missing or the
// remote call fails.
type AnthropicWriter struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
	fallback  Generator
	templates Templates
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicWriter wires the messages client with prompt templates and an
// optional fallback generator.
func NewAnthropicWriter(opts AnthropicOptions, templates Templates) *AnthropicWriter {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: anthropicDefaultTimeout}
	}
	return &AnthropicWriter{
		apiKey:    strings.TrimSpace(opts.APIKey),
		model:     model,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		client:    client,
		fallback:  opts.Fallback,
		templates: templates,
	}
}

// Generate fulfils the Generator interface.
func (w *AnthropicWriter) Generate(ctx context.Context, req Request) (string, error) {
	if w.apiKey == "" {
		return w.useFallback(ctx, req, errors.New("anthropic: api key missing"))
	}
	payload := anthropicRequest{
		Model:     w.model,
		MaxTokens: w.maxTokens,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: w.templates.RenderBiography(req),
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return w.useFallback(ctx, req, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return w.useFallback(ctx, req, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", w.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return w.useFallback(ctx, req, err)
	}
	defer resp.Body.Close()

	var decoded anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return w.useFallback(ctx, req, err)
	}
	if resp.StatusCode >= 300 {
		reason := fmt.Errorf("anthropic: status %d", resp.StatusCode)
		if decoded.Error != nil && decoded.Error.Message != "" {
			reason = fmt.Errorf("anthropic: %s (%s)", decoded.Error.Message, decoded.Error.Type)
		}
		return w.useFallback(ctx, req, reason)
	}
	text := firstText(decoded)
	if text == "" {
		return w.useFallback(ctx, req, errors.New("anthropic: empty completion"))
	}
	return ExtractHTML(text), nil
}

func (w *AnthropicWriter) useFallback(ctx context.Context, req Request, cause error) (string, error) {
	if w.fallback != nil {
		return w.fallback.Generate(ctx, req)
	}
	return "", fmt.Errorf("biography generation failed: %w", cause)
}

func firstText(resp anthropicResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text
		}
	}
	return ""
}

// ExtractHTML trims LLM chatter around the document, keeping the
// <!DOCTYPE html>…</html> block when one is present. Matching is
// case-insensitive; content without a recognizable block is returned as-is.
func ExtractHTML(content string) string {
	lower := strings.ToLower(content)
	start := strings.Index(lower, "<!doctype html")
	end := strings.LastIndex(lower, "</html>")
	if start < 0 || end < start {
		return strings.TrimSpace(content)
	}
	return content[start : end+len("</html>")]
}

var _ Generator = (*AnthropicWriter)(nil)
