// Package mock provides mock implementations of the tts interfaces for use
// in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

// Compile-time assertions.
var (
	_ tts.Synthesizer       = (*Synthesizer)(nil)
	_ tts.StreamSynthesizer = (*StreamSynthesizer)(nil)
)

// Synthesizer is a configurable mock implementation of tts.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// Audio and MIMEType are returned by Synthesize on success.
	Audio    []byte
	MIMEType string
	// Err, when set, is returned by Synthesize.
	Err error
	// Delay, when non-nil, blocks Synthesize until closed or ctx is done.
	Delay chan struct{}

	// Calls records the text of each Synthesize invocation.
	Calls []string
}

// Synthesize records the call and returns the configured fixtures.
func (m *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	delay := m.Delay
	m.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, "", m.Err
	}
	return m.Audio, m.MIMEType, nil
}

// CallCount returns the number of Synthesize invocations so far.
func (m *Synthesizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// StreamSynthesizer is a configurable mock implementation of
// tts.StreamSynthesizer. Chunks are delivered on the returned channel in
// order, then the channel is closed.
type StreamSynthesizer struct {
	mu sync.Mutex

	// Chunks are the audio chunks emitted by SynthesizeStream.
	Chunks [][]byte
	// Err, when set, is returned by SynthesizeStream instead of a stream.
	Err error

	// Calls records the text of each SynthesizeStream invocation.
	Calls []string
}

// SynthesizeStream records the call and streams the configured chunks.
func (m *StreamSynthesizer) SynthesizeStream(ctx context.Context, text string) (<-chan []byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	chunks := m.Chunks
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	ch := make(chan []byte, len(chunks))
	go func() {
		defer close(ch)
		for _, chunk := range chunks {
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
