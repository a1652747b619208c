// Package imaging wraps the external image-generation provider behind a
// narrow client interface.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Generation requests routinely take multi-second, sometimes minute-scale
// provider time, so the default timeout is generous.
const defaultTimeout = 120 * time.Second

var (
	// ErrEmptyPrompt indicates a generation request without a prompt.
	ErrEmptyPrompt = errors.New("prompt must not be empty")

	// ErrNoImage indicates the provider answered without image data.
	ErrNoImage = errors.New("provider returned no image data")
)

// Client generates one image per call from a text prompt and a "WxH" size.
// The call is synchronous and has no internal retry; provider errors and
// timeouts propagate to the caller.
type Client interface {
	Generate(ctx context.Context, prompt, size string) ([]byte, error)
}

// HTTPClient talks to an OpenAI-compatible image generation endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type generateRequest struct {
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
	N              int    `json:"n"`
}

type generateResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.With("module", "imaging"),
	}
}

func (c *HTTPClient) Generate(ctx context.Context, prompt, size string) ([]byte, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	payload, err := json.Marshal(generateRequest{
		Prompt:         prompt,
		Size:           size,
		ResponseFormat: "b64_json",
		N:              1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build generation request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("Requesting image generation", "size", size)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image generation request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode provider response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, decoded.Error.Message)
		}

		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if len(decoded.Data) == 0 || decoded.Data[0].B64JSON == "" {
		return nil, ErrNoImage
	}

	image, err := base64.StdEncoding.DecodeString(decoded.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("provider returned malformed image data: %w", err)
	}

	return image, nil
}
