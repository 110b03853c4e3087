// Package httptts provides a Synthesizer backed by the field-service
// backend's speech-synthesis endpoint: POST /speech-synthesis with a JSON
// text body, binary audio back.
package httptts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

const (
	synthesisPath  = "/speech-synthesis"
	defaultTimeout = 30 * time.Second

	// fallbackMIME is assumed when the backend omits a Content-Type.
	fallbackMIME = "audio/mpeg"
)

// Compile-time assertion that Client implements tts.Synthesizer.
var _ tts.Synthesizer = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (30 s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client implements [tts.Synthesizer] against the backend synthesis API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the backend at baseURL. baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("httptts: baseURL must not be empty")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// synthesisRequest is the JSON payload sent to POST /speech-synthesis.
type synthesisRequest struct {
	Text string `json:"text"`
}

// Synthesize requests synthesized speech for text and returns the binary
// audio payload. Failures wrap [tts.ErrSynthesisFailed].
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	payload, err := json.Marshal(synthesisRequest{Text: text})
	if err != nil {
		return nil, "", fmt.Errorf("httptts: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesisPath, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("httptts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", tts.ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: status %d", tts.ErrSynthesisFailed, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", tts.ErrSynthesisFailed, err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = fallbackMIME
	}
	return audio, mimeType, nil
}
