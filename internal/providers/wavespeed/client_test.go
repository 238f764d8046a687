package wavespeed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func newTestClient(transport http.RoundTripper) *Client {
	return NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    "https://ws.test",
		HTTPClient: &http.Client{Transport: transport},
	})
}

func TestUploadReturnsDownloadURL(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/media/upload/binary", map[string]any{
		"code": 200,
		"data": map[string]string{"download_url": "https://cdn.test/photo.jpg"},
	})
	client := newTestClient(transport)

	url, err := client.Upload(context.Background(), "photo.jpg", []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.test/photo.jpg" {
		t.Fatalf("url = %q, want cdn url", url)
	}
	if !strings.Contains(string(transport.lastBody), "photo.jpg") {
		t.Fatalf("multipart body missing filename")
	}
	if got := transport.lastAuth; got != "Bearer test-key" {
		t.Fatalf("authorization = %q", got)
	}
}

func TestUploadWithoutCredentials(t *testing.T) {
	client := NewClient(Options{HTTPClient: &http.Client{Transport: &captureTransport{}}})
	if _, err := client.Upload(context.Background(), "photo.jpg", nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestSubmitImageEditPayload(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/bytedance/seedream-v4/edit", map[string]any{
		"code": 200,
		"data": map[string]string{"id": "req-42"},
	})
	client := newTestClient(transport)

	id, err := client.SubmitImageEdit(context.Background(), ImageEditRequest{
		ImageURL: "https://cdn.test/photo.jpg",
		Prompt:   "portrait prompt",
	})
	if err != nil {
		t.Fatalf("SubmitImageEdit: %v", err)
	}
	if id != "req-42" {
		t.Fatalf("id = %q, want req-42", id)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["prompt"] != "portrait prompt" {
		t.Fatalf("prompt = %v", payload["prompt"])
	}
	images, ok := payload["images"].([]any)
	if !ok || len(images) != 1 || images[0] != "https://cdn.test/photo.jpg" {
		t.Fatalf("images = %v", payload["images"])
	}
	if payload["size"] != "1024*1024" {
		t.Fatalf("size = %v, want default", payload["size"])
	}
}

func TestSubmitVideoDefaultsDuration(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/bytedance/seedance-v1-pro-i2v-720p", map[string]any{
		"code": 200,
		"data": map[string]string{"id": "req-v1"},
	})
	client := newTestClient(transport)

	id, err := client.SubmitVideo(context.Background(), VideoRequest{
		ImageURL: "https://cdn.test/portrait.jpg",
		Prompt:   "scene prompt",
	})
	if err != nil {
		t.Fatalf("SubmitVideo: %v", err)
	}
	if id != "req-v1" {
		t.Fatalf("id = %q, want req-v1", id)
	}
	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["duration"] != float64(5) {
		t.Fatalf("duration = %v, want 5", payload["duration"])
	}
	if payload["image"] != "https://cdn.test/portrait.jpg" {
		t.Fatalf("image = %v", payload["image"])
	}
}

func TestSubmitErrorWrapsSentinel(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.responses["/bytedance/seedream-v4/edit"] = responseStub{
		status: http.StatusBadRequest,
		body:   []byte(`{"code":400,"message":"invalid image"}`),
	}
	client := newTestClient(transport)

	_, err := client.SubmitImageEdit(context.Background(), ImageEditRequest{ImageURL: "x", Prompt: "y"})
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("err = %v, want ErrSubmission", err)
	}
	if !strings.Contains(err.Error(), "invalid image") {
		t.Fatalf("err should carry vendor message, got %v", err)
	}
}

func TestPollParsesPrediction(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/predictions/req-7/result", map[string]any{
		"code": 200,
		"data": map[string]any{
			"id":      "req-7",
			"status":  "completed",
			"outputs": []string{"https://cdn.test/out.jpg"},
		},
	})
	client := newTestClient(transport)

	pred, err := client.Poll(context.Background(), "req-7")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if pred.Status != StatusCompleted {
		t.Fatalf("status = %q", pred.Status)
	}
	if len(pred.Outputs) != 1 || pred.Outputs[0] != "https://cdn.test/out.jpg" {
		t.Fatalf("outputs = %v", pred.Outputs)
	}
}

func TestFetchDecodesDataURI(t *testing.T) {
	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	ref := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)
	client := newTestClient(&captureTransport{})

	data, format, err := client.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if format != "image/jpeg" {
		t.Fatalf("format = %q, want image/jpeg", format)
	}
	if string(data) != string(raw) {
		t.Fatalf("data mismatch")
	}
}

func TestFetchDownloadsRemoteOutput(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setBinaryResponse("/outputs/final.mp4", []byte("mp4-bytes"), "video/mp4")
	client := newTestClient(transport)

	data, format, err := client.Fetch(context.Background(), "https://cdn.test/outputs/final.mp4")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if format != "video/mp4" {
		t.Fatalf("format = %q", format)
	}
	if string(data) != "mp4-bytes" {
		t.Fatalf("data = %q", data)
	}
}

func TestAwaitCompletionZeroBudgetTimesOutWithoutPolling(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(transport)

	_, err := client.AwaitCompletion(context.Background(), "req-1", time.Millisecond, 0)
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("err = %v, want ErrPollTimeout", err)
	}
	if transport.calls != 0 {
		t.Fatalf("polled %d times, want 0", transport.calls)
	}
}

func TestAwaitCompletionPendingThenCompleted(t *testing.T) {
	transport := &sequenceTransport{}
	transport.push(map[string]any{"code": 200, "data": map[string]any{"id": "r", "status": "processing"}})
	transport.push(map[string]any{"code": 200, "data": map[string]any{"id": "r", "status": "processing"}})
	transport.push(map[string]any{"code": 200, "data": map[string]any{
		"id": "r", "status": "completed", "outputs": []string{"https://cdn.test/done.jpg"},
	}})
	client := newTestClient(transport)

	out, err := client.AwaitCompletion(context.Background(), "r", time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("AwaitCompletion: %v", err)
	}
	if out != "https://cdn.test/done.jpg" {
		t.Fatalf("output = %q", out)
	}
	if transport.calls != 3 {
		t.Fatalf("polled %d times, want 3", transport.calls)
	}
}

func TestAwaitCompletionVendorFailure(t *testing.T) {
	transport := &sequenceTransport{}
	transport.push(map[string]any{"code": 200, "data": map[string]any{
		"id": "r", "status": "failed", "error": "content policy",
	}})
	client := newTestClient(transport)

	_, err := client.AwaitCompletion(context.Background(), "r", time.Millisecond, time.Second)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
	if !strings.Contains(err.Error(), "content policy") {
		t.Fatalf("err should carry vendor reason, got %v", err)
	}
}

type captureTransport struct {
	responses map[string]responseStub
	lastBody  []byte
	lastAuth  string
	calls     int
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	c.lastAuth = req.Header.Get("Authorization")
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (c *captureTransport) setBinaryResponse(path string, data []byte, contentType string) {
	c.responses[path] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{contentType}},
		body:   data,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := s.header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(string(s.body))),
	}
}

type sequenceTransport struct {
	queue []responseStub
	calls int
}

func (s *sequenceTransport) push(payload any) {
	body, _ := json.Marshal(payload)
	s.queue = append(s.queue, responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	})
}

func (s *sequenceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if len(s.queue) == 0 {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("exhausted")),
		}, nil
	}
	stub := s.queue[0]
	s.queue = s.queue[1:]
	return stub.toResponse(), nil
}
