package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tanklink/fieldscan/pkg/audio"
	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

// ErrAlreadyPlaying is returned by Play when playback is in progress.
var ErrAlreadyPlaying = errors.New("voice: playback already in progress")

// Player synthesizes speech for a text string and plays it on the speaker
// output. One playback runs at a time; the playback handle is released after
// completion or error.
type Player struct {
	synth  tts.Synthesizer
	output audio.Output
	log    *slog.Logger

	playing atomic.Bool
}

// NewPlayer creates a Player synthesizing through synth and playing on out.
func NewPlayer(synth tts.Synthesizer, out audio.Output, log *slog.Logger) *Player {
	if log == nil {
		log = slog.Default()
	}
	return &Player{synth: synth, output: out, log: log}
}

// IsPlaying reports whether playback is in progress.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// Play synthesizes text and plays the resulting audio, blocking until
// playback completes or ctx is cancelled. The speaker handle is released on
// every path.
func (p *Player) Play(ctx context.Context, text string) error {
	if !p.playing.CompareAndSwap(false, true) {
		return ErrAlreadyPlaying
	}
	defer p.playing.Store(false)

	data, mimeType, err := p.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("voice: synthesize speech: %w", err)
	}

	playback, err := p.output.Open(data, mimeType)
	if err != nil {
		return fmt.Errorf("voice: open playback: %w", err)
	}
	defer playback.Release()

	if err := playback.Play(ctx); err != nil {
		return fmt.Errorf("voice: playback: %w", err)
	}
	return nil
}
