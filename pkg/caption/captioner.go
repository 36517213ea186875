package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/martinsandoval/imagevault-backend/pkg/config"
)

// Captioner turns image bytes into a caption. The model behind the endpoint is
// a black box; implementations are injected into the caption job so tests can
// substitute a double and the worker controls warmup/teardown explicitly.
type Captioner interface {
	Warmup(ctx context.Context) error
	Caption(ctx context.Context, imageBytes []byte) (string, error)
}

// HTTPCaptioner posts image bytes to a configured inference endpoint. The
// underlying HTTP client is initialized lazily, once per process.
type HTTPCaptioner struct {
	cfg    config.CaptionConfig
	once   sync.Once
	client *http.Client
}

// NewHTTPCaptioner validates the endpoint configuration.
func NewHTTPCaptioner(cfg config.CaptionConfig) (*HTTPCaptioner, error) {
	if strings.TrimSpace(cfg.EndpointURL) == "" {
		return nil, errors.New("caption endpoint url is required")
	}
	return &HTTPCaptioner{cfg: cfg}, nil
}

func (c *HTTPCaptioner) acquire() *http.Client {
	c.once.Do(func() {
		c.client = &http.Client{Timeout: c.cfg.Timeout}
	})
	return c.client
}

// Warmup sends an empty probe so the endpoint loads its model before the first
// real job arrives. A non-2xx probe response is not fatal: some backends only
// accept real payloads, and the first caption call pays the cold start instead.
func (c *HTTPCaptioner) Warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.cfg.EndpointURL, nil)
	if err != nil {
		return fmt.Errorf("build warmup request: %w", err)
	}
	c.authorize(req)

	resp, err := c.acquire().Do(req)
	if err != nil {
		return fmt.Errorf("warmup probe: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type captionResponse struct {
	Caption string `json:"generated_caption"`
}

// Caption posts the raw image bytes and returns the generated caption.
func (c *HTTPCaptioner) Caption(ctx context.Context, imageBytes []byte) (string, error) {
	if len(imageBytes) == 0 {
		return "", errors.New("image bytes are required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.EndpointURL, bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("build caption request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	c.authorize(req)

	resp, err := c.acquire().Do(req)
	if err != nil {
		return "", fmt.Errorf("send caption request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption endpoint responded with status %d", resp.StatusCode)
	}

	var parsed captionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse caption response: %w", err)
	}

	caption := strings.TrimSpace(parsed.Caption)
	if caption == "" {
		return "", errors.New("no caption received")
	}
	return caption, nil
}

func (c *HTTPCaptioner) authorize(req *http.Request) {
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
}
