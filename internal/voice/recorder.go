// Package voice implements the push-to-talk session: chunked microphone
// recording with a live level meter, transcription on stop, and synthesized
// speech playback.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/tanklink/fieldscan/pkg/audio"
	"github.com/tanklink/fieldscan/pkg/media"
	"github.com/tanklink/fieldscan/pkg/provider/stt"
)

// ErrAlreadyRecording is returned by Start when a recording is in progress.
var ErrAlreadyRecording = errors.New("voice: recording already in progress")

// recState tracks the recorder through its lifecycle. Recording and
// transcribing are mutually exclusive.
type recState int32

const (
	stateIdle recState = iota
	stateRecording
	stateTranscribing
)

// Recorder captures microphone audio into an Opus packet blob and resolves
// it to text when stopped. At most one recording is active at a time.
type Recorder struct {
	acquirer    *media.Acquirer
	transcriber stt.Transcriber
	log         *slog.Logger

	state atomic.Int32
	// level is the latest normalized amplitude, stored as math.Float64bits.
	level atomic.Uint64

	mu      sync.Mutex
	session *media.Session
	writer  *audio.OpusWriter
	done    chan struct{}
}

// NewRecorder creates a Recorder drawing audio from acquirer and resolving
// recordings through transcriber.
func NewRecorder(acquirer *media.Acquirer, transcriber stt.Transcriber, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		acquirer:    acquirer,
		transcriber: transcriber,
		log:         log,
	}
}

// IsRecording reports whether a recording is in progress.
func (r *Recorder) IsRecording() bool {
	return recState(r.state.Load()) == stateRecording
}

// IsTranscribing reports whether a stopped recording is being transcribed.
func (r *Recorder) IsTranscribing() bool {
	return recState(r.state.Load()) == stateTranscribing
}

// Level returns the latest normalized audio level in [0,1]. It is 0 when not
// recording.
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

// Start acquires the microphone and begins buffering audio. The level meter
// runs until Stop and only while recording.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(stateIdle), int32(stateRecording)) {
		return ErrAlreadyRecording
	}

	session, err := r.acquirer.AcquireAudio(ctx)
	if err != nil {
		r.state.Store(int32(stateIdle))
		return fmt.Errorf("voice: acquire microphone: %w", err)
	}

	writer, err := audio.NewOpusWriter()
	if err != nil {
		r.acquirer.Release(session)
		r.state.Store(int32(stateIdle))
		return fmt.Errorf("voice: create encoder: %w", err)
	}

	meter := audio.NewLevelMeter()
	done := make(chan struct{})

	r.mu.Lock()
	r.session = session
	r.writer = writer
	r.done = done
	r.mu.Unlock()

	go r.consume(session, writer, meter, done)
	return nil
}

// consume drains the microphone stream, buffering audio and updating the
// level meter per frame. It exits when the stream is released.
func (r *Recorder) consume(session *media.Session, writer *audio.OpusWriter, meter *audio.LevelMeter, done chan struct{}) {
	defer close(done)
	stream := session.Audio()
	if stream == nil {
		r.log.Warn("audio session released before consuming started")
		return
	}
	for frame := range stream.Frames() {
		if err := writer.Append(audio.Frame{
			Data:       frame.Data,
			SampleRate: frame.SampleRate,
			Channels:   frame.Channels,
			Timestamp:  frame.Timestamp,
		}); err != nil {
			r.log.Warn("dropping audio frame", "error", err)
			continue
		}
		r.level.Store(math.Float64bits(meter.Process(frame.Data)))
	}
}

// Stop ends the recording, transcribes the buffered audio and returns the
// recognized text. Calling Stop when no recording was ever started returns
// "" immediately without error. A transcription failure returns an error
// wrapping [stt.ErrTranscriptionFailed] with the recorder back at idle.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	if !r.state.CompareAndSwap(int32(stateRecording), int32(stateTranscribing)) {
		return "", nil
	}
	defer r.state.Store(int32(stateIdle))
	r.level.Store(math.Float64bits(0))

	r.mu.Lock()
	session := r.session
	writer := r.writer
	done := r.done
	r.session = nil
	r.writer = nil
	r.done = nil
	r.mu.Unlock()

	// Release the microphone first so the frame channel closes, then wait
	// for the consumer to finish flushing into the writer.
	r.acquirer.Release(session)
	<-done

	blob, err := writer.Bytes()
	if err != nil {
		return "", fmt.Errorf("voice: finalize recording: %w", err)
	}
	if len(blob) == 0 {
		return "", nil
	}

	text, err := r.transcriber.Transcribe(ctx, blob, audio.MIMEOpusPackets)
	if err != nil {
		return "", fmt.Errorf("voice: transcribe recording: %w", err)
	}
	return text, nil
}
