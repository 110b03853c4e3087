// Package filedev is a file-backed implementation of [media.Device] for
// development and bench testing. Video snapshots cycle through a directory
// of still images; the microphone replays a raw 16-bit little-endian PCM
// file at the requested sample rate.
//
// Real deployments swap in a platform adapter; filedev lets the full
// capture and voice pipelines run on a machine with no camera or mic.
package filedev

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tanklink/fieldscan/pkg/media"
)

// Device serves camera frames and microphone audio from local files.
type Device struct {
	frames    []string
	audioPath string
}

var _ media.Device = (*Device)(nil)

// New builds a Device from frameDir (searched for .jpg, .jpeg and .png
// stills) and audioPath (raw s16le PCM, may be empty). Either source may be
// absent; opening the corresponding stream then reports
// [media.ErrNoDevice].
func New(frameDir, audioPath string) (*Device, error) {
	d := &Device{audioPath: audioPath}

	if frameDir != "" {
		for _, pat := range []string{"*.jpg", "*.jpeg", "*.png"} {
			m, err := filepath.Glob(filepath.Join(frameDir, pat))
			if err != nil {
				return nil, fmt.Errorf("filedev: scan %s: %w", frameDir, err)
			}
			d.frames = append(d.frames, m...)
		}
		sort.Strings(d.frames)
	}

	return d, nil
}

// OpenAudio implements [media.Device].
func (d *Device) OpenAudio(_ context.Context, c media.AudioConstraints) (media.AudioStream, error) {
	if d.audioPath == "" {
		return nil, fmt.Errorf("filedev: no audio file configured: %w", media.ErrNoDevice)
	}
	pcm, err := os.ReadFile(d.audioPath)
	if err != nil {
		return nil, fmt.Errorf("filedev: read %s: %w", d.audioPath, media.ErrNoDevice)
	}

	rate := c.SampleRate
	if rate <= 0 {
		rate = 44100
	}

	s := &audioStream{
		frames: make(chan media.AudioFrame, 16),
		quit:   make(chan struct{}),
	}
	go s.replay(pcm, rate)
	return s, nil
}

// OpenVideo implements [media.Device].
func (d *Device) OpenVideo(context.Context, media.VideoConstraints) (media.VideoStream, error) {
	if len(d.frames) == 0 {
		return nil, fmt.Errorf("filedev: no frame directory configured: %w", media.ErrNoDevice)
	}
	return &videoStream{frames: d.frames}, nil
}

// VideoInputs implements [media.Device]. A single synthetic camera is
// reported when frames are available.
func (d *Device) VideoInputs(context.Context) ([]media.DeviceInfo, error) {
	if len(d.frames) == 0 {
		return nil, nil
	}
	return []media.DeviceInfo{{ID: "filedev-0", Label: "File Camera"}}, nil
}

// ─── Audio stream ────────────────────────────────────────────────────────────

type audioStream struct {
	frames chan media.AudioFrame

	mu      sync.Mutex
	stopped bool
	quit    chan struct{}
}

// replay paces 20 ms mono frames out of the raw PCM buffer, looping so the
// stream behaves like a live microphone until stopped.
func (s *audioStream) replay(pcm []byte, rate int) {
	defer close(s.frames)

	const frameDur = 20 * time.Millisecond
	frameBytes := 2 * rate / 50 // s16le samples per 20 ms
	if frameBytes == 0 || len(pcm) < frameBytes {
		return
	}

	tick := time.NewTicker(frameDur)
	defer tick.Stop()

	var off int
	var elapsed time.Duration
	for {
		select {
		case <-s.quit:
			return
		case <-tick.C:
		}

		if off+frameBytes > len(pcm) {
			off = 0
		}
		chunk := pcm[off : off+frameBytes]
		off += frameBytes
		elapsed += frameDur

		frame := media.AudioFrame{
			Data:       chunk,
			SampleRate: rate,
			Channels:   1,
			Timestamp:  elapsed,
		}
		select {
		case s.frames <- frame:
		case <-s.quit:
			return
		}
	}
}

func (s *audioStream) Frames() <-chan media.AudioFrame { return s.frames }

func (s *audioStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.quit)
}

func (s *audioStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// ─── Video stream ────────────────────────────────────────────────────────────

type videoStream struct {
	frames []string

	mu      sync.Mutex
	idx     int
	stopped bool
}

func (s *videoStream) Snapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, fmt.Errorf("filedev: stream stopped")
	}
	path := s.frames[s.idx%len(s.frames)]
	s.idx++
	s.mu.Unlock()

	return os.ReadFile(path)
}

// Record returns the next still wrapped in a trivial length-prefixed
// container. filedev has no motion source, so a clip degenerates to one
// frame.
func (s *videoStream) Record(ctx context.Context, _ time.Duration) ([]byte, error) {
	frame, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4+len(frame))
	binary.LittleEndian.PutUint32(out, uint32(len(frame)))
	copy(out[4:], frame)
	return out, nil
}

func (s *videoStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *videoStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
