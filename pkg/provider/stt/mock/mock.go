// Package mock provides a test double for the stt.Transcriber interface.
package mock

import (
	"context"
	"sync"

	"github.com/tanklink/fieldscan/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Audio is the blob passed to Transcribe.
	Audio []byte
	// MIMEType is the container type passed to Transcribe.
	MIMEType string
}

// Transcriber is a mock implementation of stt.Transcriber.
// Set the Result/Err fields before use; inspect Calls after.
type Transcriber struct {
	mu sync.Mutex

	// Result is the text returned by Transcribe.
	Result string

	// Err, if non-nil, is returned by Transcribe.
	Err error

	// Delay blocks Transcribe until the channel is closed, letting tests
	// hold a transcription in flight. Nil means no delay.
	Delay chan struct{}

	// Calls records every invocation.
	Calls []TranscribeCall
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe records the call and returns Result, Err.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, TranscribeCall{Audio: audio, MIMEType: mimeType})
	delay := t.Delay
	result, err := t.Result, t.Err
	t.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return result, err
}

// CallCount returns the number of recorded Transcribe calls.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
