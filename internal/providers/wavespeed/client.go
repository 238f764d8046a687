package wavespeed

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wikibio/internal/infra"
)

// Error sentinels for the vendor call taxonomy. Submission errors surface
// synchronously to stage starters; the rest terminate a background watcher.
var (
	ErrMissingAPIKey    = errors.New("wavespeed: api key is required")
	ErrSubmission       = errors.New("wavespeed: submission rejected")
	ErrPollTimeout      = errors.New("wavespeed: poll timeout")
	ErrGenerationFailed = errors.New("wavespeed: generation failed")
	ErrFetch            = errors.New("wavespeed: fetch failed")
)

// Prediction statuses reported by the vendor's result endpoint.
const (
	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Options configures the Wavespeed client.
type Options struct {
	APIKey         string
	BaseURL        string
	ImageModel     string
	VideoModel     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the Wavespeed prediction API: one
// submit per stage, cheap status polls, and a fetch of the completed output.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	videoModel string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageEditRequest captures the inputs for a portrait edit submission.
type ImageEditRequest struct {
	ImageURL string
	Prompt   string
	Size     string
}

// VideoRequest captures the inputs for an image-to-video submission.
type VideoRequest struct {
	ImageURL string
	Prompt   string
	Duration int
}

// Prediction is one status snapshot of a submitted request.
type Prediction struct {
	ID      string
	Status  string
	Outputs []string
	Error   string
}

type submitPayload struct {
	EnableBase64Output bool     `json:"enable_base64_output"`
	EnableSyncMode     bool     `json:"enable_sync_mode"`
	Images             []string `json:"images,omitempty"`
	Image              string   `json:"image,omitempty"`
	Prompt             string   `json:"prompt"`
	Size               string   `json:"size,omitempty"`
	Duration           int      `json:"duration,omitempty"`
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type submitData struct {
	ID string `json:"id"`
}

type resultData struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Outputs []string `json:"outputs"`
	Error   string   `json:"error"`
}

type uploadData struct {
	DownloadURL string `json:"download_url"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.wavespeed.ai/api/v3"
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = "bytedance/seedream-v4/edit"
	}
	videoModel := strings.TrimSpace(opts.VideoModel)
	if videoModel == "" {
		videoModel = "bytedance/seedance-v1-pro-i2v-720p"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		imageModel: imageModel,
		videoModel: videoModel,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Upload pushes raw photo bytes to the vendor's media endpoint and returns
// the hosted URL that submissions can reference.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("wavespeed: build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("wavespeed: write upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("wavespeed: close upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/media/upload/binary", body)
	if err != nil {
		return "", fmt.Errorf("wavespeed: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	envelope, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: upload: %s", ErrSubmission, err)
	}
	var decoded uploadData
	if err := json.Unmarshal(envelope.Data, &decoded); err != nil || decoded.DownloadURL == "" {
		return "", fmt.Errorf("%w: upload returned no download url", ErrSubmission)
	}
	c.logger.Debug().Str("url", decoded.DownloadURL).Msg("wavespeed: uploaded photo")
	return decoded.DownloadURL, nil
}

// SubmitImageEdit kicks off a portrait edit and returns the vendor-assigned
// request identifier.
func (c *Client) SubmitImageEdit(ctx context.Context, req ImageEditRequest) (string, error) {
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = "1024*1024"
	}
	return c.submit(ctx, c.imageModel, submitPayload{
		EnableBase64Output: true,
		Images:             []string{req.ImageURL},
		Prompt:             req.Prompt,
		Size:               size,
	})
}

// SubmitVideo kicks off an image-to-video generation and returns the
// vendor-assigned request identifier.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (string, error) {
	duration := req.Duration
	if duration <= 0 {
		duration = 5
	}
	return c.submit(ctx, c.videoModel, submitPayload{
		Image:    req.ImageURL,
		Prompt:   req.Prompt,
		Duration: duration,
	})
}

func (c *Client) submit(ctx context.Context, model string, payload submitPayload) (string, error) {
	if !c.HasCredentials() {
		return "", fmt.Errorf("%w: %s", ErrSubmission, ErrMissingAPIKey)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("wavespeed: encode submit payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+model, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("wavespeed: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	envelope, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSubmission, err)
	}
	var decoded submitData
	if err := json.Unmarshal(envelope.Data, &decoded); err != nil || decoded.ID == "" {
		return "", fmt.Errorf("%w: response missing request id", ErrSubmission)
	}
	c.logger.Debug().Str("model", model).Str("request_id", decoded.ID).Msg("wavespeed: task submitted")
	return decoded.ID, nil
}

// Poll performs a single status check; it never blocks beyond one round trip.
func (c *Client) Poll(ctx context.Context, requestID string) (*Prediction, error) {
	endpoint := fmt.Sprintf("%s/predictions/%s/result", c.baseURL, url.PathEscape(requestID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("wavespeed: build poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	envelope, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("wavespeed: poll: %w", err)
	}
	var decoded resultData
	if err := json.Unmarshal(envelope.Data, &decoded); err != nil {
		return nil, fmt.Errorf("wavespeed: decode poll response: %w", err)
	}
	return &Prediction{
		ID:      decoded.ID,
		Status:  decoded.Status,
		Outputs: decoded.Outputs,
		Error:   decoded.Error,
	}, nil
}

// Fetch materializes a completed output. The reference is either an inline
// base64 data URI, decoded locally, or a remote locator that is downloaded.
// Returns the bytes and the media's MIME type.
func (c *Client) Fetch(ctx context.Context, outputRef string) ([]byte, string, error) {
	ref := strings.TrimSpace(outputRef)
	if ref == "" {
		return nil, "", fmt.Errorf("%w: empty output reference", ErrFetch)
	}
	if strings.HasPrefix(ref, "data:") {
		return decodeDataURI(ref)
	}

	parsed, err := url.Parse(ref)
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("%w: invalid output url %q", ErrFetch, outputRef)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: build download request: %s", ErrFetch, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: download: %s", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: download status %d", ErrFetch, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read download: %s", ErrFetch, err)
	}
	format := resp.Header.Get("Content-Type")
	if format == "" {
		format = "application/octet-stream"
	}
	return data, format, nil
}

// AwaitCompletion loops Poll until the vendor reports a terminal status or
// maxWait elapses. A non-positive maxWait times out immediately without a
// single poll. Transient poll errors are retried within the deadline.
func (c *Client) AwaitCompletion(ctx context.Context, requestID string, interval, maxWait time.Duration) (string, error) {
	if maxWait <= 0 {
		return "", ErrPollTimeout
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := time.Now().Add(maxWait)
	for {
		pred, err := c.Poll(ctx, requestID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Warn().Err(err).Str("request_id", requestID).Msg("wavespeed: poll attempt failed")
		case pred.Status == StatusCompleted:
			if len(pred.Outputs) == 0 {
				return "", fmt.Errorf("%w: completed with no outputs", ErrFetch)
			}
			return pred.Outputs[0], nil
		case pred.Status == StatusFailed:
			reason := strings.TrimSpace(pred.Error)
			if reason == "" {
				reason = "vendor reported failure"
			}
			return "", fmt.Errorf("%w: %s", ErrGenerationFailed, reason)
		}

		if time.Now().Add(interval).After(deadline) {
			return "", ErrPollTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Client) do(req *http.Request) (*apiEnvelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var envelope apiEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, envelope.Message)
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &envelope, nil
}

func decodeDataURI(ref string) ([]byte, string, error) {
	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return nil, "", fmt.Errorf("%w: malformed data uri", ErrFetch)
	}
	header := ref[len("data:"):comma]
	payload := ref[comma+1:]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode data uri: %s", ErrFetch, err)
	}
	format := header
	if idx := strings.IndexByte(header, ';'); idx >= 0 {
		format = header[:idx]
	}
	if format == "" {
		format = "application/octet-stream"
	}
	return data, format, nil
}
