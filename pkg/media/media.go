// Package media defines the capability boundary over platform camera and
// microphone APIs and the acquisition layer on top of it.
//
// The two primary abstractions are:
//
//   - [Device] — opens audio/video streams under constraints and enumerates
//     video inputs.
//   - [Acquirer] — pairs every acquisition with exactly one release, tracks
//     at most one live session per kind, classifies device failures into
//     user-presentable categories, and handles camera facing switches with
//     fallback.
//
// Implementations of [Device] are provided by platform adapter packages;
// this repository ships a scripted mock for tests.
package media

import (
	"context"
	"errors"
	"time"
)

// Kind distinguishes audio from video sessions.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Facing selects which camera a video session should use.
type Facing string

const (
	// FacingUser is the front (selfie) camera.
	FacingUser Facing = "user"

	// FacingEnvironment is the rear camera, the default for scanning
	// equipment labels in the field.
	FacingEnvironment Facing = "environment"
)

// Opposite returns the other facing mode.
func (f Facing) Opposite() Facing {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Classified acquisition failures. Device implementations wrap one of these
// sentinels so the acquirer can surface the right guidance to the technician.
var (
	// ErrNoDevice indicates no camera or microphone is present.
	ErrNoDevice = errors.New("media: no device found")

	// ErrPermissionDenied indicates the user or OS refused device access.
	ErrPermissionDenied = errors.New("media: permission denied")

	// ErrDeviceBusy indicates the device is held by another application.
	ErrDeviceBusy = errors.New("media: device busy")
)

// Message converts an acquisition error into the human-readable notice shown
// to the technician. Unclassified errors get a generic message.
func Message(kind Kind, err error) string {
	switch {
	case errors.Is(err, ErrNoDevice):
		if kind == KindVideo {
			return "No camera found on this device"
		}
		return "No microphone found on this device"
	case errors.Is(err, ErrPermissionDenied):
		if kind == KindVideo {
			return "Camera access denied. Please allow camera permissions."
		}
		return "Unable to access microphone. Please check permissions."
	case errors.Is(err, ErrDeviceBusy):
		if kind == KindVideo {
			return "Camera is already in use by another application"
		}
		return "Microphone is already in use by another application"
	default:
		if kind == KindVideo {
			return "Camera access denied or not available"
		}
		return "Microphone access denied or not available"
	}
}

// VideoConstraints carries the resolution and frame-rate hints passed to the
// platform when opening a camera stream.
type VideoConstraints struct {
	Facing         Facing
	IdealWidth     int
	MaxWidth       int
	IdealHeight    int
	MaxHeight      int
	IdealFrameRate int
	MaxFrameRate   int
}

// DefaultVideoConstraints returns the scanning-tuned camera constraints:
// ideal 1280×720 capped at 1920×1080, 30 fps ideal capped at 60.
func DefaultVideoConstraints(facing Facing) VideoConstraints {
	return VideoConstraints{
		Facing:         facing,
		IdealWidth:     1280,
		MaxWidth:       1920,
		IdealHeight:    720,
		MaxHeight:      1080,
		IdealFrameRate: 30,
		MaxFrameRate:   60,
	}
}

// AudioConstraints carries the processing hints passed to the platform when
// opening a microphone stream.
type AudioConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// DefaultAudioConstraints returns the voice-capture microphone constraints.
func DefaultAudioConstraints() AudioConstraints {
	return AudioConstraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		SampleRate:       44100,
	}
}

// DeviceInfo describes one enumerated video input.
type DeviceInfo struct {
	// ID is the platform-specific device identifier.
	ID string

	// Label is the human-readable device name (e.g., "Back Camera").
	Label string
}

// Stream is the common lifecycle shared by audio and video streams.
type Stream interface {
	// Stop halts every track of the stream and releases the hardware.
	// Calling Stop on an already-stopped stream is a no-op.
	Stop()

	// Stopped reports whether the stream has been stopped.
	Stopped() bool
}

// AudioStream is a live microphone stream delivering PCM frames.
type AudioStream interface {
	Stream

	// Frames returns the channel of captured PCM frames. The channel is
	// closed when the stream stops.
	Frames() <-chan AudioFrame
}

// AudioFrame is one chunk of captured PCM. Mirrors the frame type in
// pkg/audio without importing it, keeping this boundary self-contained for
// external adapters.
type AudioFrame struct {
	Data       []byte
	SampleRate int
	Channels   int
	Timestamp  time.Duration
}

// VideoStream is a live camera stream.
type VideoStream interface {
	Stream

	// Snapshot captures the current video frame as an encoded JPEG still.
	Snapshot(ctx context.Context) ([]byte, error)

	// Record captures a video clip of the given duration from the live
	// stream and returns the encoded container bytes.
	Record(ctx context.Context, d time.Duration) ([]byte, error)
}

// Device is the platform capability boundary for camera and microphone
// acquisition. Implementations must classify open failures by wrapping
// [ErrNoDevice], [ErrPermissionDenied], or [ErrDeviceBusy] where the cause
// is known.
//
// Implementations must be safe for concurrent use.
type Device interface {
	// OpenAudio opens a microphone stream under the given constraints.
	OpenAudio(ctx context.Context, c AudioConstraints) (AudioStream, error)

	// OpenVideo opens a camera stream under the given constraints.
	OpenVideo(ctx context.Context, c VideoConstraints) (VideoStream, error)

	// VideoInputs lists the available camera devices.
	VideoInputs(ctx context.Context) ([]DeviceInfo, error)
}
