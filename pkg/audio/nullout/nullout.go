// Package nullout is a speaker [audio.Output] that discards playback.
// Headless deployments (and the dev server) use it so the voice pipeline
// can run end to end on machines without an audio sink.
package nullout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tanklink/fieldscan/pkg/audio"
)

// Output accepts any non-empty payload and plays it instantly.
type Output struct {
	log *slog.Logger
}

var _ audio.Output = (*Output)(nil)

// New creates a discarding output. log may be nil.
func New(log *slog.Logger) *Output {
	if log == nil {
		log = slog.Default()
	}
	return &Output{log: log}
}

// Open implements [audio.Output].
func (o *Output) Open(data []byte, mimeType string) (audio.Playback, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("nullout: empty audio payload")
	}
	return &playback{log: o.log, size: len(data), mimeType: mimeType}, nil
}

type playback struct {
	log      *slog.Logger
	size     int
	mimeType string
}

func (p *playback) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.log.Debug("discarded playback", "bytes", p.size, "mime_type", p.mimeType)
	return nil
}

func (p *playback) Release() {}
