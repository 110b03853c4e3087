package voice

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tanklink/fieldscan/pkg/audio"
	"github.com/tanklink/fieldscan/pkg/media"
	mediamock "github.com/tanklink/fieldscan/pkg/media/mock"
	sttmock "github.com/tanklink/fieldscan/pkg/provider/stt/mock"
)

// tonePCM returns little-endian 16-bit mono PCM of a 440 Hz tone.
func tonePCM(sampleRate, samples int) []byte {
	out := make([]byte, samples*2)
	for i := range samples {
		v := int16(12000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

func newRecorder(t *testing.T, stream *mediamock.AudioStream, trans *sttmock.Transcriber) *Recorder {
	t.Helper()
	dev := &mediamock.Device{Audio: stream}
	return NewRecorder(media.NewAcquirer(dev), trans, nil)
}

func TestStopWithoutStartReturnsEmpty(t *testing.T) {
	trans := &sttmock.Transcriber{Result: "should not be used"}
	rec := newRecorder(t, mediamock.NewAudioStream(4), trans)

	text, err := rec.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	if trans.CallCount() != 0 {
		t.Error("transcriber must not be called")
	}
}

func TestRecordAndTranscribe(t *testing.T) {
	stream := mediamock.NewAudioStream(8)
	trans := &sttmock.Transcriber{Result: "replace the filter"}
	rec := newRecorder(t, stream, trans)
	ctx := context.Background()

	if err := rec.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !rec.IsRecording() {
		t.Error("IsRecording should be true after Start")
	}

	// One second of tone at the native Opus rate.
	stream.Push(media.AudioFrame{
		Data:       tonePCM(16000, 16000),
		SampleRate: 16000,
		Channels:   1,
	})

	text, err := rec.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if text != "replace the filter" {
		t.Errorf("text = %q", text)
	}
	if rec.IsRecording() || rec.IsTranscribing() {
		t.Error("recorder should be idle after Stop")
	}
	if !stream.Stopped() {
		t.Error("microphone stream should be released")
	}

	calls := trans.Calls
	if len(calls) != 1 {
		t.Fatalf("transcriber called %d times, want 1", len(calls))
	}
	if calls[0].MIMEType != audio.MIMEOpusPackets {
		t.Errorf("MIME = %q, want %q", calls[0].MIMEType, audio.MIMEOpusPackets)
	}
	if len(calls[0].Audio) == 0 {
		t.Error("uploaded blob is empty")
	}
}

func TestLevelTracksRecordingOnly(t *testing.T) {
	stream := mediamock.NewAudioStream(8)
	rec := newRecorder(t, stream, &sttmock.Transcriber{})
	ctx := context.Background()

	if rec.Level() != 0 {
		t.Error("level should be 0 before recording")
	}
	if err := rec.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	stream.Push(media.AudioFrame{Data: tonePCM(16000, 1600), SampleRate: 16000, Channels: 1})

	// The consumer updates the level asynchronously.
	deadline := time.After(time.Second)
	for rec.Level() == 0 {
		select {
		case <-deadline:
			t.Fatal("level never rose while recording a tone")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := rec.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.Level() != 0 {
		t.Error("level should reset to 0 after Stop")
	}
}

func TestDoubleStartRejected(t *testing.T) {
	rec := newRecorder(t, mediamock.NewAudioStream(4), &sttmock.Transcriber{})
	ctx := context.Background()

	if err := rec.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rec.Start(ctx); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start = %v, want ErrAlreadyRecording", err)
	}
	rec.Stop(ctx)
}

func TestEmptyRecordingSkipsTranscription(t *testing.T) {
	trans := &sttmock.Transcriber{Result: "unused"}
	rec := newRecorder(t, mediamock.NewAudioStream(4), trans)
	ctx := context.Background()

	if err := rec.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	text, err := rec.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	if trans.CallCount() != 0 {
		t.Error("transcriber must not be called for an empty recording")
	}
}

func TestTranscriptionFailureLeavesRecorderReusable(t *testing.T) {
	stream := mediamock.NewAudioStream(8)
	trans := &sttmock.Transcriber{Err: errors.New("backend down")}
	rec := newRecorder(t, stream, trans)
	ctx := context.Background()

	if err := rec.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	stream.Push(media.AudioFrame{Data: tonePCM(16000, 16000), SampleRate: 16000, Channels: 1})

	if _, err := rec.Stop(ctx); err == nil {
		t.Fatal("Stop should propagate the transcription failure")
	}
	if rec.IsTranscribing() || rec.IsRecording() {
		t.Error("recorder must return to idle after a failure")
	}

	// The microphone can be re-acquired afterwards.
	if err := rec.Start(ctx); err != nil {
		t.Fatalf("Start after failure: %v", err)
	}
	rec.Stop(ctx)
}

func TestStartSurfacesDeviceFailure(t *testing.T) {
	dev := &mediamock.Device{OpenAudioErr: media.ErrPermissionDenied}
	rec := NewRecorder(media.NewAcquirer(dev), &sttmock.Transcriber{}, nil)

	err := rec.Start(context.Background())
	if !errors.Is(err, media.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if rec.IsRecording() {
		t.Error("recorder must stay idle when acquisition fails")
	}
}

func TestStopFlushesPartialOpusWindow(t *testing.T) {
	stream := mediamock.NewAudioStream(8)
	trans := &sttmock.Transcriber{Result: "ok"}
	rec := newRecorder(t, stream, trans)
	ctx := context.Background()

	if err := rec.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// 30 ms at 16 kHz: one full 20 ms Opus window plus a partial one that
	// Stop must zero-pad and flush before uploading.
	stream.Push(media.AudioFrame{
		Data:       tonePCM(16000, 480),
		SampleRate: 16000,
		Channels:   1,
	})

	text, err := rec.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q", text)
	}
	if trans.CallCount() != 1 {
		t.Fatalf("transcriber calls = %d, want 1", trans.CallCount())
	}
	call := trans.Calls[0]
	if len(call.Audio) == 0 {
		t.Fatal("uploaded blob is empty despite buffered audio")
	}
	if call.MIMEType != audio.MIMEOpusPackets {
		t.Errorf("mime = %q", call.MIMEType)
	}
}
