package audio

import "time"

// Frame represents a single chunk of PCM audio moving through the capture
// pipeline. Frames are the atomic unit of audio transport — read from the
// microphone stream, analysed for level metering, and accumulated into a
// recording buffer.
type Frame struct {
	// Data holds little-endian int16 PCM samples.
	Data []byte

	// SampleRate in Hz (e.g., 44100 for microphone capture, 16000 for STT upload).
	SampleRate int

	// Channels: 1 for mono, 2 for interleaved stereo.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}
