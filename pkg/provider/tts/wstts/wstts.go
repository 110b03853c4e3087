// Package wstts provides a streaming Synthesizer over the backend's
// speech-synthesis WebSocket API. Audio arrives as base64-encoded chunks so
// playback can start before the full utterance has been rendered.
package wstts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coder/websocket"

	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

const streamPath = "/speech-synthesis/stream"

// Compile-time assertion that Client implements tts.StreamSynthesizer.
var _ tts.StreamSynthesizer = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithVoice sets the voice identifier sent in the stream handshake.
func WithVoice(voice string) Option {
	return func(c *Client) {
		c.voice = voice
	}
}

// Client implements [tts.StreamSynthesizer] against the backend streaming API.
type Client struct {
	baseURL string
	voice   string
}

// New creates a Client for the backend at baseURL. baseURL must be non-empty
// and should use the ws:// or wss:// scheme.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("wstts: baseURL must not be empty")
	}
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// streamRequest is the handshake message opening a synthesis stream.
type streamRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// streamChunk is a single message received over the WebSocket.
type streamChunk struct {
	Audio   string `json:"audio"` // base64-encoded audio bytes
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// SynthesizeStream opens a WebSocket to the backend, sends the text, and
// returns a channel delivering decoded audio chunks as they arrive. The
// channel is closed when the backend signals the final chunk, on error, or
// when ctx is cancelled. An empty stream that closes immediately indicates
// the backend rejected the request.
func (c *Client) SynthesizeStream(ctx context.Context, text string) (<-chan []byte, error) {
	conn, _, err := websocket.Dial(ctx, c.baseURL+streamPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", tts.ErrSynthesisFailed, err)
	}

	req, err := json.Marshal(streamRequest{Text: text, Voice: c.voice})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "marshal request")
		return nil, fmt.Errorf("wstts: marshal request: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		conn.Close(websocket.StatusInternalError, "failed to send request")
		return nil, fmt.Errorf("%w: send request: %v", tts.ErrSynthesisFailed, err)
	}

	audioCh := make(chan []byte, 64)

	go func() {
		defer close(audioCh)
		defer conn.Close(websocket.StatusNormalClosure, "done")

		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var chunk streamChunk
			if err := json.Unmarshal(msg, &chunk); err != nil {
				continue
			}
			if chunk.Audio != "" {
				raw, err := base64.StdEncoding.DecodeString(chunk.Audio)
				if err == nil {
					select {
					case audioCh <- raw:
					case <-ctx.Done():
						return
					}
				}
			}
			if chunk.IsFinal {
				return
			}
		}
	}()

	return audioCh, nil
}
