package resilience

import (
	"context"

	"github.com/tanklink/fieldscan/pkg/provider/stt"
	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

// Compile-time interface assertions.
var (
	_ stt.Transcriber = (*TranscriberFallback)(nil)
	_ tts.Synthesizer = (*SynthesizerFallback)(nil)
)

// TranscriberFallback implements [stt.Transcriber] with automatic failover
// across multiple transcription backends. Each backend has its own breaker.
type TranscriberFallback struct {
	chain *FallbackChain[stt.Transcriber]
}

// NewTranscriberFallback creates a fallback with primary as the preferred
// backend.
func NewTranscriberFallback(primary stt.Transcriber, primaryName string, cfg BreakerConfig) *TranscriberFallback {
	return &TranscriberFallback{chain: NewFallbackChain(primary, primaryName, cfg)}
}

// Add registers an additional transcriber as a fallback.
func (f *TranscriberFallback) Add(name string, t stt.Transcriber) {
	f.chain.Add(name, t)
}

// Transcribe resolves audio to text through the first healthy backend.
func (f *TranscriberFallback) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return DoWithResult(f.chain, func(t stt.Transcriber) (string, error) {
		return t.Transcribe(ctx, audio, mimeType)
	})
}

// SynthesizerFallback implements [tts.Synthesizer] with automatic failover
// across multiple synthesis backends.
type SynthesizerFallback struct {
	chain *FallbackChain[tts.Synthesizer]
}

// NewSynthesizerFallback creates a fallback with primary as the preferred
// backend.
func NewSynthesizerFallback(primary tts.Synthesizer, primaryName string, cfg BreakerConfig) *SynthesizerFallback {
	return &SynthesizerFallback{chain: NewFallbackChain(primary, primaryName, cfg)}
}

// Add registers an additional synthesizer as a fallback.
func (f *SynthesizerFallback) Add(name string, s tts.Synthesizer) {
	f.chain.Add(name, s)
}

// Synthesize renders text to audio through the first healthy backend.
func (f *SynthesizerFallback) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	type out struct {
		audio    []byte
		mimeType string
	}
	res, err := DoWithResult(f.chain, func(s tts.Synthesizer) (out, error) {
		audio, mimeType, err := s.Synthesize(ctx, text)
		return out{audio: audio, mimeType: mimeType}, err
	})
	return res.audio, res.mimeType, err
}
