package biography

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type writerTransport struct {
	status   int
	body     string
	lastBody []byte
	lastReq  *http.Request
}

func (t *writerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.lastReq = req
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		t.lastBody = body
	}
	return &http.Response{
		StatusCode: t.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(t.body)),
	}, nil
}

func TestGeneratePostsMessagesRequest(t *testing.T) {
	transport := &writerTransport{
		status: http.StatusOK,
		body:   `{"content":[{"type":"text","text":"<!DOCTYPE html><html><body>hi</body></html>"}]}`,
	}
	writer := NewAnthropicWriter(AnthropicOptions{
		APIKey:     "key",
		Model:      "claude-sonnet-4-5",
		BaseURL:    "https://llm.test",
		HTTPClient: &http.Client{Transport: transport},
	}, DefaultTemplates())

	html, err := writer.Generate(context.Background(), Request{Name: "Ada", Job: "plumber", Place: "Lisbon", Locale: "en"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(html, "<body>hi</body>") {
		t.Fatalf("html = %q", html)
	}

	if transport.lastReq.URL.Path != "/v1/messages" {
		t.Fatalf("path = %q", transport.lastReq.URL.Path)
	}
	if transport.lastReq.Header.Get("x-api-key") != "key" {
		t.Fatalf("x-api-key missing")
	}
	if transport.lastReq.Header.Get("anthropic-version") == "" {
		t.Fatalf("anthropic-version missing")
	}
	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["model"] != "claude-sonnet-4-5" {
		t.Fatalf("model = %v", payload["model"])
	}
	messages := payload["messages"].([]any)
	content := messages[0].(map[string]any)["content"].(string)
	for _, want := range []string{"Ada", "plumber", "Lisbon"} {
		if !strings.Contains(content, want) {
			t.Fatalf("prompt missing %q: %s", want, content)
		}
	}
}

func TestGenerateFallsBackWithoutKey(t *testing.T) {
	writer := NewAnthropicWriter(AnthropicOptions{
		Fallback: NewStaticWriter(),
	}, DefaultTemplates())

	html, err := writer.Generate(context.Background(), Request{Name: "ada lovelace", Job: "plumber", Place: "Lisbon"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(html, "Ada Lovelace") {
		t.Fatalf("fallback did not title-case the name: %s", html)
	}
	if !strings.Contains(html, `id="portrait-image"`) || !strings.Contains(html, `id="scene-video"`) {
		t.Fatalf("fallback document missing slots")
	}
}

func TestGenerateFallsBackOnRemoteError(t *testing.T) {
	transport := &writerTransport{
		status: http.StatusInternalServerError,
		body:   `{"error":{"type":"overloaded_error","message":"busy"}}`,
	}
	writer := NewAnthropicWriter(AnthropicOptions{
		APIKey:     "key",
		BaseURL:    "https://llm.test",
		HTTPClient: &http.Client{Transport: transport},
		Fallback:   NewStaticWriter(),
	}, DefaultTemplates())

	html, err := writer.Generate(context.Background(), Request{Name: "Ada", Job: "plumber", Place: "Lisbon"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(html, "<!DOCTYPE html>") {
		t.Fatalf("fallback document not returned: %s", html)
	}
}

func TestGenerateWithoutFallbackSurfacesError(t *testing.T) {
	writer := NewAnthropicWriter(AnthropicOptions{}, DefaultTemplates())

	if _, err := writer.Generate(context.Background(), Request{Name: "Ada"}); err == nil {
		t.Fatalf("expected error without key and fallback")
	}
}

func TestExtractHTML(t *testing.T) {
	wrapped := "Here is your page:\n<!DOCTYPE html>\n<html><body>x</body></html>\nEnjoy!"
	got := ExtractHTML(wrapped)
	if got != "<!DOCTYPE html>\n<html><body>x</body></html>" {
		t.Fatalf("extract = %q", got)
	}

	caseMixed := "<!doctype HTML><HTML>y</HTML>"
	if got := ExtractHTML(caseMixed); got != caseMixed {
		t.Fatalf("case-insensitive extract = %q", got)
	}

	plain := "  just text, no document  "
	if got := ExtractHTML(plain); got != "just text, no document" {
		t.Fatalf("plain extract = %q", got)
	}
}
