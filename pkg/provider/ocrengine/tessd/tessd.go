// Package tessd provides an Engine backed by a tessd recognition daemon, a
// thin HTTP wrapper around Tesseract that keeps a trained worker resident
// between requests. Sessions map one-to-one onto daemon workers.
package tessd

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
	"time"

	"github.com/tanklink/fieldscan/pkg/provider/ocrengine"
)

const (
	defaultTimeout  = 45 * time.Second
	defaultLanguage = "eng"
)

// Compile-time assertion that Client implements ocrengine.Engine.
var _ ocrengine.Engine = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (45 s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLanguage sets the trained-data language requested from the daemon.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// Client implements [ocrengine.Engine] against a tessd daemon.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
}

// New creates a Client for the daemon at baseURL. baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("tessd: baseURL must not be empty")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// sessionRequest is the JSON payload for POST /sessions.
type sessionRequest struct {
	Language string `json:"language"`
}

// sessionResponse is the JSON response from POST /sessions.
type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

// paramsRequest is the JSON payload for PUT /sessions/{id}/parameters.
type paramsRequest struct {
	Whitelist    string `json:"whitelist"`
	Segmentation string `json:"segmentation"`
}

// recognizeResponse is the JSON response from POST /sessions/{id}/recognize.
type recognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Initialize creates a daemon session. A second call on a live session is a
// no-op.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID != "" {
		return nil
	}

	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/sessions", "application/json",
		mustJSON(sessionRequest{Language: c.language}), &resp)
	if err != nil {
		return fmt.Errorf("tessd: initialize: %w", err)
	}
	if resp.SessionID == "" {
		return errors.New("tessd: initialize: daemon returned empty session id")
	}
	c.sessionID = resp.SessionID
	return nil
}

// Recognize runs OCR over image bytes through the daemon session.
func (c *Client) Recognize(ctx context.Context, image []byte) (ocrengine.Result, error) {
	id, err := c.session()
	if err != nil {
		return ocrengine.Result{}, err
	}

	var resp recognizeResponse
	err = c.do(ctx, http.MethodPost, "/sessions/"+id+"/recognize", "application/octet-stream", image, &resp)
	if err != nil {
		return ocrengine.Result{}, fmt.Errorf("%w: %v", ocrengine.ErrRecognitionFailed, err)
	}
	return ocrengine.Result{Text: resp.Text, Confidence: resp.Confidence}, nil
}

// SetParameters reconfigures the daemon session.
func (c *Client) SetParameters(ctx context.Context, p ocrengine.Params) error {
	id, err := c.session()
	if err != nil {
		return err
	}

	body := mustJSON(paramsRequest{
		Whitelist:    p.Whitelist,
		Segmentation: string(p.Segmentation),
	})
	if err := c.do(ctx, http.MethodPut, "/sessions/"+id+"/parameters", "application/json", body, nil); err != nil {
		return fmt.Errorf("tessd: set parameters: %w", err)
	}
	return nil
}

// Terminate deletes the daemon session. Calling Terminate on a
// never-initialized client returns nil without touching the daemon.
func (c *Client) Terminate(ctx context.Context) error {
	c.mu.Lock()
	id := c.sessionID
	c.sessionID = ""
	c.mu.Unlock()
	if id == "" {
		return nil
	}

	if err := c.do(ctx, http.MethodDelete, "/sessions/"+id, "", nil, nil); err != nil {
		return fmt.Errorf("tessd: terminate: %w", err)
	}
	return nil
}

// session returns the current session ID or ErrNotInitialized.
func (c *Client) session() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" {
		return "", ocrengine.ErrNotInitialized
	}
	return c.sessionID, nil
}

// do performs an HTTP exchange with the daemon, decoding a JSON response
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mustJSON marshals v, which is always a plain struct of strings here.
func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
