package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tanklink/fieldscan/pkg/provider/ocrengine"
	"github.com/tanklink/fieldscan/pkg/provider/stt"
	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	stt map[string]func(ProviderEntry) (stt.Transcriber, error)
	tts map[string]func(ProviderEntry) (tts.Synthesizer, error)
	ocr map[string]func(ProviderEntry) (ocrengine.Engine, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt: make(map[string]func(ProviderEntry) (stt.Transcriber, error)),
		tts: make(map[string]func(ProviderEntry) (tts.Synthesizer, error)),
		ocr: make(map[string]func(ProviderEntry) (ocrengine.Engine, error)),
	}
}

// RegisterSTT registers a transcription provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTTS registers a speech-synthesis provider factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Synthesizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterOCR registers a recognition engine factory under name.
func (r *Registry) RegisterOCR(name string, factory func(ProviderEntry) (ocrengine.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocr[name] = factory
}

// CreateSTT constructs the transcription provider selected by entry.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS constructs the speech-synthesis provider selected by entry.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Synthesizer, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateOCR constructs the recognition engine selected by entry.
func (r *Registry) CreateOCR(entry ProviderEntry) (ocrengine.Engine, error) {
	r.mu.RLock()
	factory, ok := r.ocr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: ocr %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
