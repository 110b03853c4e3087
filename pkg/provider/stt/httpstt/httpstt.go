// Package httpstt provides a Transcriber backed by the field-service
// backend's transcription endpoint. It uploads the recording as multipart
// form data to POST /transcription and decodes the JSON text response.
package httpstt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/tanklink/fieldscan/pkg/provider/stt"
)

const (
	transcriptionPath = "/transcription"

	// fieldName and fileName are what the backend expects in the multipart
	// body.
	fieldName = "audio"
	fileName  = "recording"

	defaultTimeout = 60 * time.Second
)

// Compile-time assertion that Client implements stt.Transcriber.
var _ stt.Transcriber = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (60 s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client implements [stt.Transcriber] against the backend transcription API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the backend at baseURL (e.g.,
// "https://api.example.com"). baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("httpstt: baseURL must not be empty")
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

// transcriptionResponse is the JSON body returned by POST /transcription.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads audio as a multipart form file and returns the
// recognized text. Any transport error or non-2xx status is reported as an
// error wrapping [stt.ErrTranscriptionFailed].
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName))
	if mimeType != "" {
		hdr.Set("Content-Type", mimeType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("httpstt: create form part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("httpstt: write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("httpstt: finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcriptionPath, &body)
	if err != nil {
		return "", fmt.Errorf("httpstt: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", stt.ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the log line, then discard the rest.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("%w: status %d: %s", stt.ErrTranscriptionFailed, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", stt.ErrTranscriptionFailed, err)
	}
	return tr.Text, nil
}
