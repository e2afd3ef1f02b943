package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/benbenbuben/text-to-video-app/internal/auth"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultModelURL is the hosted Stable Diffusion 2 endpoint.
	DefaultModelURL = "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-2"

	// maxResponseBytes caps how much of an upstream body is read into memory.
	maxResponseBytes = 32 << 20
)

// HuggingFaceClient calls the Hugging Face serverless inference API.
type HuggingFaceClient struct {
	httpClient   *http.Client
	token        string
	modelURL     string
	waitForModel bool
	maxBodyBytes int64
}

// HuggingFaceOption customizes a HuggingFaceClient.
type HuggingFaceOption func(*HuggingFaceClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) HuggingFaceOption {
	return func(h *HuggingFaceClient) {
		h.httpClient = c
	}
}

// WithModelURL points the client at a different model endpoint.
func WithModelURL(url string) HuggingFaceOption {
	return func(h *HuggingFaceClient) {
		if url != "" {
			h.modelURL = url
		}
	}
}

// WithWaitForModel asks the API to hold the request while a cold model loads
// instead of answering 503.
func WithWaitForModel(wait bool) HuggingFaceOption {
	return func(h *HuggingFaceClient) {
		h.waitForModel = wait
	}
}

// NewHuggingFaceClient creates a client. The token is not validated here;
// Ready reports whether it is usable so construction never fails.
func NewHuggingFaceClient(token string, opts ...HuggingFaceOption) *HuggingFaceClient {
	c := &HuggingFaceClient{
		httpClient: &http.Client{},
		token:      token,
		modelURL:     DefaultModelURL,
		maxBodyBytes: maxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type hfRequest struct {
	Inputs  string     `json:"inputs"`
	Options *hfOptions `json:"options,omitempty"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// Name identifies the backend in logs.
func (c *HuggingFaceClient) Name() string {
	return "huggingface"
}

// Ready validates the configured token without touching the network.
func (c *HuggingFaceClient) Ready() error {
	return auth.ValidateToken(c.token)
}

// Generate issues one inference call for prompt. The call is bounded by ctx;
// callers apply the per-call timeout.
func (c *HuggingFaceClient) Generate(ctx context.Context, prompt string) (*Image, error) {
	payload := hfRequest{Inputs: prompt}
	if c.waitForModel {
		payload.Options = &hfOptions{WaitForModel: true}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	tooLarge := int64(len(respBody)) > c.maxBodyBytes
	if tooLarge {
		respBody = respBody[:c.maxBodyBytes]
	}

	contentType := resp.Header.Get("Content-Type")
	log.Debug().
		Int("status_code", resp.StatusCode).
		Str("content_type", contentType).
		Int("bytes", len(respBody)).
		Dur("duration", time.Since(startTime)).
		Msg("Inference call completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Body:        respBody,
		}
	}
	if tooLarge {
		return nil, fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, c.maxBodyBytes)
	}

	return &Image{
		Data:     respBody,
		MIMEType: mediaType(contentType),
	}, nil
}

// mediaType strips parameters from a Content-Type header value.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
