// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A Transcriber ships one finalized recording blob to a recognition backend
// and resolves the recognized text. The field application records short
// push-to-talk utterances, so the interface is batch rather than streaming:
// one complete, immutable audio blob in, one text out.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrTranscriptionFailed is wrapped by every implementation when the backend
// returns a non-success status or the request fails to complete. Callers
// surface a retryable notice and reset their transcribing state.
var ErrTranscriptionFailed = errors.New("stt: transcription failed")

// Transcriber is the abstraction over any speech-to-text backend.
type Transcriber interface {
	// Transcribe uploads the complete audio blob and returns the recognized
	// text. audio must be immutable for the duration of the call; mimeType
	// identifies its container (e.g., audio.MIMEOpusPackets, "audio/wav").
	//
	// Returns an error wrapping [ErrTranscriptionFailed] on any backend or
	// transport failure. An empty string with a nil error means the backend
	// recognized no speech.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
