// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// A Synthesizer turns a response text into playable audio. Two shapes are
// supported: the batch [Synthesizer], which resolves the complete encoded
// payload, and the optional [StreamSynthesizer], which emits audio chunks as
// they are rendered so playback can begin before synthesis finishes.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
	"fmt"
)

// ErrSynthesisFailed is wrapped by implementations when the backend returns
// a non-success status or the request fails to complete.
var ErrSynthesisFailed = errors.New("tts: synthesis failed")

// Synthesizer is the abstraction over any text-to-speech backend.
type Synthesizer interface {
	// Synthesize renders text into encoded audio and returns the complete
	// payload together with its MIME type.
	Synthesize(ctx context.Context, text string) (audio []byte, mimeType string, err error)
}

// StreamSynthesizer renders text into a stream of audio chunks.
type StreamSynthesizer interface {
	// SynthesizeStream starts synthesis of text and returns a channel that
	// emits encoded audio chunks as they become available. The channel is
	// closed when synthesis completes or ctx is cancelled; callers must
	// drain it. Errors after a successful start are signalled by closing
	// the channel early — check ctx.Err() to distinguish cancellation.
	SynthesizeStream(ctx context.Context, text string) (<-chan []byte, error)
}

// Collect adapts a [StreamSynthesizer] to the batch [Synthesizer] interface
// by draining the chunk stream into a single payload. mimeType is reported
// for the assembled audio since streaming backends do not carry one per chunk.
func Collect(s StreamSynthesizer, mimeType string) Synthesizer {
	return &collected{s: s, mimeType: mimeType}
}

type collected struct {
	s        StreamSynthesizer
	mimeType string
}

var _ Synthesizer = (*collected)(nil)

func (c *collected) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	chunks, err := c.s.SynthesizeStream(ctx, text)
	if err != nil {
		return nil, "", err
	}
	var buf []byte
	for chunk := range chunks {
		buf = append(buf, chunk...)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	if len(buf) == 0 {
		return nil, "", fmt.Errorf("%w: stream produced no audio", ErrSynthesisFailed)
	}
	return buf, c.mimeType, nil
}
