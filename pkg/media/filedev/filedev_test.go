package filedev

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tanklink/fieldscan/pkg/media"
)

func writeFrames(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSnapshotCyclesFrames(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, "a.jpg", "b.jpg")

	dev, err := New(dir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vs, err := dev.OpenVideo(context.Background(), media.DefaultVideoConstraints(media.FacingEnvironment))
	if err != nil {
		t.Fatalf("OpenVideo: %v", err)
	}
	defer vs.Stop()

	want := []string{"a.jpg", "b.jpg", "a.jpg"}
	for i, w := range want {
		frame, err := vs.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot %d: %v", i, err)
		}
		if string(frame) != w {
			t.Errorf("frame %d = %q, want %q", i, frame, w)
		}
	}
}

func TestOpenVideoWithoutFramesReportsNoDevice(t *testing.T) {
	dev, err := New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = dev.OpenVideo(context.Background(), media.DefaultVideoConstraints(media.FacingEnvironment))
	if !errors.Is(err, media.ErrNoDevice) {
		t.Fatalf("err = %v, want ErrNoDevice", err)
	}
	_, err = dev.OpenAudio(context.Background(), media.DefaultAudioConstraints())
	if !errors.Is(err, media.ErrNoDevice) {
		t.Fatalf("audio err = %v, want ErrNoDevice", err)
	}
}

func TestAudioReplayPacesFrames(t *testing.T) {
	dir := t.TempDir()
	// One second of silence at 8 kHz s16le.
	pcm := make([]byte, 2*8000)
	path := filepath.Join(dir, "mic.pcm")
	if err := os.WriteFile(path, pcm, 0o644); err != nil {
		t.Fatal(err)
	}

	dev, err := New("", path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c := media.DefaultAudioConstraints()
	c.SampleRate = 8000
	as, err := dev.OpenAudio(context.Background(), c)
	if err != nil {
		t.Fatalf("OpenAudio: %v", err)
	}
	defer as.Stop()

	select {
	case frame := <-as.Frames():
		if frame.SampleRate != 8000 || frame.Channels != 1 {
			t.Errorf("frame format = %d Hz %d ch", frame.SampleRate, frame.Channels)
		}
		// 20 ms at 8 kHz mono s16le.
		if len(frame.Data) != 320 {
			t.Errorf("frame size = %d, want 320", len(frame.Data))
		}
	case <-time.After(time.Second):
		t.Fatal("no frame within 1s")
	}

	as.Stop()
	if !as.Stopped() {
		t.Error("Stopped() = false after Stop")
	}
}
