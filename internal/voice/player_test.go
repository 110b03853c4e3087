package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	audiomock "github.com/tanklink/fieldscan/pkg/audio/mock"
	ttsmock "github.com/tanklink/fieldscan/pkg/provider/tts/mock"
)

func TestPlayReleasesHandleOnCompletion(t *testing.T) {
	out := &audiomock.Output{}
	synth := &ttsmock.Synthesizer{Audio: []byte{0x01, 0x02}, MIMEType: "audio/mpeg"}
	p := NewPlayer(synth, out, nil)

	if err := p.Play(context.Background(), "filter replaced"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if p.IsPlaying() {
		t.Error("IsPlaying should clear after completion")
	}
	if out.OpenCount() != 1 {
		t.Fatalf("OpenCount = %d", out.OpenCount())
	}
	pb := out.Opened[0]
	if pb.ReleaseCount() != 1 {
		t.Errorf("ReleaseCount = %d, want 1", pb.ReleaseCount())
	}
	if pb.MIMEType != "audio/mpeg" {
		t.Errorf("MIMEType = %q", pb.MIMEType)
	}
}

func TestPlayReleasesHandleOnError(t *testing.T) {
	out := &audiomock.Output{PlayErr: errors.New("speaker gone")}
	synth := &ttsmock.Synthesizer{Audio: []byte{0x01}, MIMEType: "audio/mpeg"}
	p := NewPlayer(synth, out, nil)

	if err := p.Play(context.Background(), "x"); err == nil {
		t.Fatal("Play should propagate the playback error")
	}
	if p.IsPlaying() {
		t.Error("IsPlaying should clear after an error")
	}
	if out.Opened[0].ReleaseCount() != 1 {
		t.Errorf("ReleaseCount = %d, want 1", out.Opened[0].ReleaseCount())
	}
}

func TestPlaySynthesisFailureSkipsOutput(t *testing.T) {
	out := &audiomock.Output{}
	synth := &ttsmock.Synthesizer{Err: errors.New("backend down")}
	p := NewPlayer(synth, out, nil)

	if err := p.Play(context.Background(), "x"); err == nil {
		t.Fatal("Play should propagate the synthesis failure")
	}
	if out.OpenCount() != 0 {
		t.Error("output must not be opened when synthesis fails")
	}
	if p.IsPlaying() {
		t.Error("IsPlaying should clear after a synthesis failure")
	}
}

func TestConcurrentPlayRejected(t *testing.T) {
	delay := make(chan struct{})
	out := &audiomock.Output{PlayDelay: delay}
	synth := &ttsmock.Synthesizer{Audio: []byte{0x01}, MIMEType: "audio/mpeg"}
	p := NewPlayer(synth, out, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Play(context.Background(), "first")
	}()

	deadline := time.After(time.Second)
	for !p.IsPlaying() {
		select {
		case <-deadline:
			t.Fatal("first playback never started")
		case <-time.After(time.Millisecond):
		}
	}

	if err := p.Play(context.Background(), "second"); !errors.Is(err, ErrAlreadyPlaying) {
		t.Fatalf("second Play = %v, want ErrAlreadyPlaying", err)
	}

	close(delay)
	if err := <-errCh; err != nil {
		t.Fatalf("first Play: %v", err)
	}
}
