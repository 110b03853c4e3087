package media

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Acquirer manages hardware stream acquisition over a [Device]. It enforces
// at most one active session per kind, pairs every acquire with exactly one
// release, and handles camera facing switches with fallback to the previous
// facing when the switch fails.
//
// All methods are safe for concurrent use.
type Acquirer struct {
	dev Device

	mu    sync.Mutex
	audio *Session
	video *Session
}

// NewAcquirer creates an Acquirer over the given device boundary.
func NewAcquirer(dev Device) *Acquirer {
	return &Acquirer{dev: dev}
}

// AcquireVideo opens a camera stream with the scanning-tuned constraints and
// the requested facing mode. Any previously acquired video session is
// released first. The returned error wraps one of the classified sentinels
// when the device reported a recognisable cause; use [Message] for the
// user-facing text.
func (a *Acquirer) AcquireVideo(ctx context.Context, facing Facing) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquireVideoLocked(ctx, facing)
}

func (a *Acquirer) acquireVideoLocked(ctx context.Context, facing Facing) (*Session, error) {
	if a.video != nil {
		a.video.release()
		a.video = nil
	}

	stream, err := a.dev.OpenVideo(ctx, DefaultVideoConstraints(facing))
	if err != nil {
		return nil, fmt.Errorf("media: acquire video: %w", err)
	}

	a.video = &Session{kind: KindVideo, facing: facing, stream: stream, active: true}
	return a.video, nil
}

// AcquireAudio opens a microphone stream with echo cancellation and noise
// suppression enabled. Any previously acquired audio session is released
// first.
func (a *Acquirer) AcquireAudio(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.audio != nil {
		a.audio.release()
		a.audio = nil
	}

	stream, err := a.dev.OpenAudio(ctx, DefaultAudioConstraints())
	if err != nil {
		return nil, fmt.Errorf("media: acquire audio: %w", err)
	}

	a.audio = &Session{kind: KindAudio, stream: stream, active: true}
	return a.audio, nil
}

// Release stops every track of the session and forgets it. Calling Release
// on a nil or already-released session is a no-op.
func (a *Acquirer) Release(s *Session) {
	if s == nil {
		return
	}
	s.release()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.audio == s {
		a.audio = nil
	}
	if a.video == s {
		a.video = nil
	}
}

// SwitchFacing releases the current video session and reacquires the camera
// with the opposite facing mode. If the opposite camera cannot be opened the
// original facing is reacquired instead, so the caller is never left without
// a stream unless both attempts fail.
func (a *Acquirer) SwitchFacing(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.video == nil {
		return nil, fmt.Errorf("media: switch facing: no active video session")
	}
	original := a.video.facing
	target := original.Opposite()

	s, err := a.acquireVideoLocked(ctx, target)
	if err == nil {
		return s, nil
	}

	slog.Warn("camera facing switch failed, restoring previous facing",
		"from", original, "to", target, "err", err)

	s, restoreErr := a.acquireVideoLocked(ctx, original)
	if restoreErr != nil {
		return nil, fmt.Errorf("media: switch facing: %w (restore also failed: %v)", err, restoreErr)
	}
	return s, nil
}

// EnumerateVideoInputs lists the available camera devices. Enumeration
// failures are logged and reported as an empty list rather than propagated —
// multi-camera UI affordances degrade, nothing else depends on this.
func (a *Acquirer) EnumerateVideoInputs(ctx context.Context) []DeviceInfo {
	inputs, err := a.dev.VideoInputs(ctx)
	if err != nil {
		slog.Warn("video input enumeration failed", "err", err)
		return nil
	}
	return inputs
}

// ReleaseAll releases any active sessions. Intended for teardown paths where
// the owning component is going away.
func (a *Acquirer) ReleaseAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.audio != nil {
		a.audio.release()
		a.audio = nil
	}
	if a.video != nil {
		a.video.release()
		a.video = nil
	}
}
