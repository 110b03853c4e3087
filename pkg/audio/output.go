// Package audio provides the PCM types and processing primitives shared by
// the voice capture pipeline: frames, level metering, format conversion,
// Opus packing for upload, and the speaker output boundary.
package audio

import "context"

// Playback is a playable handle over one piece of synthesized audio.
// Obtained from [Output.Open]; callers must call Release exactly once when
// playback has finished or failed so the underlying decoder and device
// resources are returned.
type Playback interface {
	// Play renders the audio to completion. It returns nil when playback
	// ends naturally, ctx.Err() when cancelled, and a non-nil error on
	// decode or hardware failure.
	Play(ctx context.Context) error

	// Release frees the decoder and device resources backing this handle.
	// Safe to call more than once.
	Release()
}

// Output is the speaker-side capability boundary. Implementations wrap a
// platform audio sink; the repository ships a mock for tests.
//
// Implementations must be safe for concurrent use, but only one Playback
// should be active at a time — serialization is the caller's responsibility.
type Output interface {
	// Open decodes data (in the container identified by mimeType) into a
	// playable handle. Returns an error if the payload cannot be decoded.
	Open(data []byte, mimeType string) (Playback, error)
}
