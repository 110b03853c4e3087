package voice

import (
	"context"
	"log/slog"

	"github.com/tanklink/fieldscan/pkg/audio"
	"github.com/tanklink/fieldscan/pkg/media"
	"github.com/tanklink/fieldscan/pkg/provider/stt"
	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

// State is a point-in-time snapshot of the voice session for UI consumers.
// IsRecording and IsTranscribing are never both true.
type State struct {
	IsRecording    bool    `json:"isRecording"`
	IsTranscribing bool    `json:"isTranscribing"`
	IsPlaying      bool    `json:"isPlaying"`
	AudioLevel     float64 `json:"audioLevel"`
}

// Session bundles the recorder and player into the push-to-talk surface the
// UI consumes.
type Session struct {
	recorder *Recorder
	player   *Player
	acquirer *media.Acquirer
}

// NewSession wires a voice session over the given device, transcriber,
// synthesizer and speaker output.
func NewSession(dev media.Device, transcriber stt.Transcriber, synth tts.Synthesizer, out audio.Output, log *slog.Logger) *Session {
	acquirer := media.NewAcquirer(dev)
	return &Session{
		recorder: NewRecorder(acquirer, transcriber, log),
		player:   NewPlayer(synth, out, log),
		acquirer: acquirer,
	}
}

// StartRecording begins capturing microphone audio.
func (s *Session) StartRecording(ctx context.Context) error {
	return s.recorder.Start(ctx)
}

// StopRecording ends the recording and returns the transcribed text. When no
// recording was ever started it returns "" immediately.
func (s *Session) StopRecording(ctx context.Context) (string, error) {
	return s.recorder.Stop(ctx)
}

// PlayResponse speaks text through the speaker output.
func (s *Session) PlayResponse(ctx context.Context, text string) error {
	return s.player.Play(ctx, text)
}

// State returns the current snapshot.
func (s *Session) State() State {
	return State{
		IsRecording:    s.recorder.IsRecording(),
		IsTranscribing: s.recorder.IsTranscribing(),
		IsPlaying:      s.player.IsPlaying(),
		AudioLevel:     s.recorder.Level(),
	}
}

// Close releases any hardware the session still holds.
func (s *Session) Close() {
	s.acquirer.ReleaseAll()
}
