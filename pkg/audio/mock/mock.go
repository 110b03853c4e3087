// Package mock provides mock implementations of the audio output interfaces
// for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/tanklink/fieldscan/pkg/audio"
)

// Compile-time assertions.
var (
	_ audio.Output   = (*Output)(nil)
	_ audio.Playback = (*Playback)(nil)
)

// Output is a configurable mock implementation of audio.Output.
type Output struct {
	mu sync.Mutex

	// OpenErr, when set, is returned by Open.
	OpenErr error
	// PlayErr is copied onto every opened Playback.
	PlayErr error
	// PlayDelay is copied onto every opened Playback.
	PlayDelay chan struct{}

	// Opened records every playback handle created, in order.
	Opened []*Playback
}

// Open records the call and returns a new Playback carrying the configured
// behavior.
func (o *Output) Open(data []byte, mimeType string) (audio.Playback, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	p := &Playback{
		Data:     data,
		MIMEType: mimeType,
		Err:      o.PlayErr,
		Delay:    o.PlayDelay,
	}
	o.Opened = append(o.Opened, p)
	return p, nil
}

// OpenCount returns the number of successful Open calls.
func (o *Output) OpenCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Opened)
}

// Playback is a mock playback handle recording Play and Release calls.
type Playback struct {
	mu sync.Mutex

	// Data and MIMEType are what Open received.
	Data     []byte
	MIMEType string

	// Err, when set, is returned by Play.
	Err error
	// Delay, when non-nil, blocks Play until closed or ctx is done.
	Delay chan struct{}

	playN    int
	releaseN int
}

// Play honors Delay and Err, recording the call.
func (p *Playback) Play(ctx context.Context) error {
	p.mu.Lock()
	p.playN++
	delay := p.Delay
	p.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.Err
}

// Release records the call.
func (p *Playback) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseN++
}

// PlayCount returns how many times Play was called.
func (p *Playback) PlayCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playN
}

// ReleaseCount returns how many times Release was called.
func (p *Playback) ReleaseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releaseN
}
