package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tanklink/fieldscan/pkg/provider/ocrengine"
	"github.com/tanklink/fieldscan/pkg/provider/stt"
	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

// Compile-time assertions.
var (
	_ stt.Transcriber  = (*InstrumentedTranscriber)(nil)
	_ tts.Synthesizer  = (*InstrumentedSynthesizer)(nil)
	_ ocrengine.Engine = (*InstrumentedEngine)(nil)
)

// InstrumentedTranscriber wraps a [stt.Transcriber], recording request
// counts, errors and latency under the given provider name.
type InstrumentedTranscriber struct {
	next     stt.Transcriber
	provider string
	metrics  *Metrics
}

// WrapTranscriber decorates next with metrics recording.
func WrapTranscriber(next stt.Transcriber, provider string, m *Metrics) *InstrumentedTranscriber {
	return &InstrumentedTranscriber{next: next, provider: provider, metrics: m}
}

// Transcribe implements [stt.Transcriber].
func (t *InstrumentedTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	start := time.Now()
	text, err := t.next.Transcribe(ctx, audio, mimeType)
	t.metrics.STTDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(Attr("provider", t.provider)))
	t.metrics.RecordProviderRequest(ctx, t.provider, "stt", statusOf(err))
	if err != nil {
		t.metrics.RecordProviderError(ctx, t.provider, "stt")
	}
	return text, err
}

// InstrumentedSynthesizer wraps a [tts.Synthesizer], recording request
// counts, errors and latency under the given provider name.
type InstrumentedSynthesizer struct {
	next     tts.Synthesizer
	provider string
	metrics  *Metrics
}

// WrapSynthesizer decorates next with metrics recording.
func WrapSynthesizer(next tts.Synthesizer, provider string, m *Metrics) *InstrumentedSynthesizer {
	return &InstrumentedSynthesizer{next: next, provider: provider, metrics: m}
}

// Synthesize implements [tts.Synthesizer].
func (s *InstrumentedSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	start := time.Now()
	audio, mimeType, err := s.next.Synthesize(ctx, text)
	s.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(Attr("provider", s.provider)))
	s.metrics.RecordProviderRequest(ctx, s.provider, "tts", statusOf(err))
	if err != nil {
		s.metrics.RecordProviderError(ctx, s.provider, "tts")
	}
	return audio, mimeType, err
}

// InstrumentedEngine wraps an [ocrengine.Engine], recording recognition
// latency and errors under the given provider name. Lifecycle calls pass
// through unrecorded.
type InstrumentedEngine struct {
	next     ocrengine.Engine
	provider string
	metrics  *Metrics
}

// WrapEngine decorates next with metrics recording.
func WrapEngine(next ocrengine.Engine, provider string, m *Metrics) *InstrumentedEngine {
	return &InstrumentedEngine{next: next, provider: provider, metrics: m}
}

// Initialize implements [ocrengine.Engine].
func (e *InstrumentedEngine) Initialize(ctx context.Context) error {
	return e.next.Initialize(ctx)
}

// Recognize implements [ocrengine.Engine].
func (e *InstrumentedEngine) Recognize(ctx context.Context, image []byte) (ocrengine.Result, error) {
	start := time.Now()
	res, err := e.next.Recognize(ctx, image)
	e.metrics.OCRDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(Attr("provider", e.provider)))
	e.metrics.RecordProviderRequest(ctx, e.provider, "ocr", statusOf(err))
	if err != nil {
		e.metrics.RecordProviderError(ctx, e.provider, "ocr")
	}
	return res, err
}

// SetParameters implements [ocrengine.Engine].
func (e *InstrumentedEngine) SetParameters(ctx context.Context, p ocrengine.Params) error {
	return e.next.SetParameters(ctx, p)
}

// Terminate implements [ocrengine.Engine].
func (e *InstrumentedEngine) Terminate(ctx context.Context) error {
	return e.next.Terminate(ctx)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
