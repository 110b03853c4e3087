// Package mock provides in-memory mock implementations of the [media.Device],
// [media.AudioStream], and [media.VideoStream] interfaces for use in unit
// tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and expose exported
// fields the test can set to control return values.
//
// Typical usage:
//
//	dev := &mock.Device{
//	    Video: &mock.VideoStream{SnapshotResult: []byte("jpeg")},
//	}
//	acq := media.NewAcquirer(dev)
//	session, err := acq.AcquireVideo(ctx, media.FacingEnvironment)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/tanklink/fieldscan/pkg/media"
)

// ─── Device ───────────────────────────────────────────────────────────────────

// Device is a mock implementation of [media.Device].
type Device struct {
	mu sync.Mutex

	// Audio is returned by OpenAudio. If nil, a new default AudioStream with a
	// buffered frame channel is created per call.
	Audio *AudioStream

	// Video is returned by OpenVideo. If nil, a new default VideoStream is
	// created per call.
	Video *VideoStream

	// OpenAudioErr, if non-nil, is returned by OpenAudio.
	OpenAudioErr error

	// OpenVideoErr, if non-nil, is returned by OpenVideo. When
	// OpenVideoErrByFacing has an entry for the requested facing, that entry
	// takes precedence.
	OpenVideoErr error

	// OpenVideoErrByFacing maps a facing mode to the error OpenVideo returns
	// for it. Facings without an entry fall back to OpenVideoErr.
	OpenVideoErrByFacing map[media.Facing]error

	// VideoInputsResult is returned by VideoInputs.
	VideoInputsResult []media.DeviceInfo

	// VideoInputsErr, if non-nil, is returned by VideoInputs.
	VideoInputsErr error

	// OpenAudioCalls records the constraints passed to every OpenAudio call.
	OpenAudioCalls []media.AudioConstraints

	// OpenVideoCalls records the constraints passed to every OpenVideo call.
	OpenVideoCalls []media.VideoConstraints

	// OpenedVideoStreams records every stream handed out by OpenVideo so tests
	// can verify Stop propagation when Video is nil.
	OpenedVideoStreams []*VideoStream
}

// OpenAudio implements [media.Device].
func (d *Device) OpenAudio(_ context.Context, c media.AudioConstraints) (media.AudioStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpenAudioCalls = append(d.OpenAudioCalls, c)
	if d.OpenAudioErr != nil {
		return nil, d.OpenAudioErr
	}
	if d.Audio != nil {
		return d.Audio, nil
	}
	return NewAudioStream(16), nil
}

// OpenVideo implements [media.Device].
func (d *Device) OpenVideo(_ context.Context, c media.VideoConstraints) (media.VideoStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpenVideoCalls = append(d.OpenVideoCalls, c)
	if err, ok := d.OpenVideoErrByFacing[c.Facing]; ok && err != nil {
		return nil, err
	}
	if d.OpenVideoErr != nil {
		return nil, d.OpenVideoErr
	}
	if d.Video != nil {
		return d.Video, nil
	}
	vs := &VideoStream{}
	d.OpenedVideoStreams = append(d.OpenedVideoStreams, vs)
	return vs, nil
}

// VideoInputs implements [media.Device].
func (d *Device) VideoInputs(context.Context) ([]media.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.VideoInputsErr != nil {
		return nil, d.VideoInputsErr
	}
	return d.VideoInputsResult, nil
}

// ─── AudioStream ──────────────────────────────────────────────────────────────

// AudioStream is a mock implementation of [media.AudioStream]. Tests push
// frames with [AudioStream.Push]; Stop closes the frame channel.
type AudioStream struct {
	mu      sync.Mutex
	frames  chan media.AudioFrame
	stopped bool

	// StopCount records how many times Stop was called, including no-op calls.
	StopCount int
}

// NewAudioStream creates a mock audio stream with the given frame buffer size.
func NewAudioStream(buffer int) *AudioStream {
	return &AudioStream{frames: make(chan media.AudioFrame, buffer)}
}

// Push delivers a frame to the stream's consumer. Returns false if the
// stream has been stopped.
func (s *AudioStream) Push(f media.AudioFrame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.frames <- f
	return true
}

// Frames implements [media.AudioStream].
func (s *AudioStream) Frames() <-chan media.AudioFrame { return s.frames }

// Stop implements [media.Stream]. The first call closes the frame channel.
func (s *AudioStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCount++
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.frames)
}

// Stopped implements [media.Stream].
func (s *AudioStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// ─── VideoStream ──────────────────────────────────────────────────────────────

// VideoStream is a mock implementation of [media.VideoStream].
type VideoStream struct {
	mu      sync.Mutex
	stopped bool

	// SnapshotResult is returned by Snapshot.
	SnapshotResult []byte

	// SnapshotErr, if non-nil, is returned by Snapshot.
	SnapshotErr error

	// SnapshotDelay makes Snapshot wait before returning, for tests that race
	// capture against close. The delay respects context cancellation.
	SnapshotDelay time.Duration

	// RecordResult is returned by Record.
	RecordResult []byte

	// RecordErr, if non-nil, is returned by Record.
	RecordErr error

	// StopCount records how many times Stop was called, including no-op calls.
	StopCount int

	// SnapshotCalls records how many times Snapshot was called.
	SnapshotCalls int
}

// Snapshot implements [media.VideoStream].
func (s *VideoStream) Snapshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	s.SnapshotCalls++
	delay := s.SnapshotDelay
	res, err := s.SnapshotResult, s.SnapshotErr
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res, err
}

// Record implements [media.VideoStream].
func (s *VideoStream) Record(ctx context.Context, _ time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.RecordResult, s.RecordErr
}

// Stop implements [media.Stream].
func (s *VideoStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCount++
	s.stopped = true
}

// Stopped implements [media.Stream].
func (s *VideoStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Compile-time interface checks.
var (
	_ media.Device      = (*Device)(nil)
	_ media.AudioStream = (*AudioStream)(nil)
	_ media.VideoStream = (*VideoStream)(nil)
)
