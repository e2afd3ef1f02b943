package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benbenbuben/text-to-video-app/internal/auth"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultImagenModel is the Imagen model used by the Gemini backend.
const DefaultImagenModel = "imagen-4.0-generate-001"

// ErrEmptyResponse is returned when the API answered successfully but carried
// no image (for example, every candidate was filtered).
var ErrEmptyResponse = errors.New("inference API returned no image")

// GeminiClient generates images with Imagen through the Gemini API.
type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient creates a Gemini-backed client. The SDK client is created
// lazily on the first Generate so a missing key surfaces through Ready.
func NewGeminiClient(apiKey, model string, httpClient *http.Client) *GeminiClient {
	if model == "" {
		model = DefaultImagenModel
	}
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

// Name identifies the backend in logs.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Ready reports whether an API key is configured.
func (c *GeminiClient) Ready() error {
	return auth.ValidateAPIKey(c.apiKey)
}

// sdk returns the shared SDK client, creating it on first use. A failed
// construction is not cached so the next call tries again.
func (c *GeminiClient) sdk() (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

// Generate asks Imagen for one image. API errors are mapped onto StatusError
// so they share the Hugging Face classification rules.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (*Image, error) {
	client, err := c.sdk()
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	startTime := time.Now()
	resp, err := client.Models.GenerateImages(ctx, c.model, prompt, nil)
	if err != nil {
		if statusErr := statusFromAPIError(err); statusErr != nil {
			return nil, statusErr
		}
		return nil, fmt.Errorf("Imagen request failed: %w", err)
	}

	log.Debug().
		Str("model", c.model).
		Int("images", len(resp.GeneratedImages)).
		Dur("duration", time.Since(startTime)).
		Msg("Imagen call completed")

	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		mimeType := generated.Image.MIMEType
		if mimeType == "" {
			mimeType = http.DetectContentType(generated.Image.ImageBytes)
		}
		return &Image{
			Data:     generated.Image.ImageBytes,
			MIMEType: mimeType,
		}, nil
	}

	return nil, ErrEmptyResponse
}

// statusFromAPIError converts a genai.APIError into a StatusError carrying a
// JSON body of the form {"error": "..."}.
func statusFromAPIError(err error) *StatusError {
	var code int
	var message string

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, message = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrPtr):
		code, message = apiErrPtr.Code, apiErrPtr.Message
	default:
		return nil
	}

	body, _ := json.Marshal(map[string]string{"error": message})
	return &StatusError{
		StatusCode:  code,
		ContentType: "application/json",
		Body:        body,
	}
}
