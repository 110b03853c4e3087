// Package openai provides a Transcriber backed by the OpenAI Whisper API.
// It serves as the fallback transcription path when the field-service
// backend's own endpoint is degraded.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tanklink/fieldscan/pkg/provider/stt"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = oai.AudioModelWhisper1

// Ensure Client implements the stt.Transcriber interface.
var _ stt.Transcriber = (*Client)(nil)

// config holds optional configuration for the client.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Client.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Client implements stt.Transcriber using the OpenAI audio transcription API.
type Client struct {
	client oai.Client
	model  string
}

// New constructs a new OpenAI transcription Client.
// If model is empty, DefaultModel (whisper-1) is used.
func New(apiKey string, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Client{
		client: oai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// Transcribe uploads the audio blob to the OpenAI transcription endpoint and
// returns the recognized text. Failures wrap [stt.ErrTranscriptionFailed].
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	resp, err := c.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model: c.model,
		File:  oai.File(bytes.NewReader(audio), fileNameFor(mimeType), mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %v", stt.ErrTranscriptionFailed, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// fileNameFor picks a filename extension the API recognises for the given
// MIME type; the endpoint infers the container from it.
func fileNameFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"), strings.Contains(mimeType, "opus"):
		return "recording.ogg"
	case strings.Contains(mimeType, "wav"):
		return "recording.wav"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return "recording.mp3"
	default:
		return "recording.webm"
	}
}
