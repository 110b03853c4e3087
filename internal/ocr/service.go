// Package ocr turns still images into structured text for the capture
// pipeline. It owns the shared recognition engine, lazily initializing it on
// first use and serializing access so mode-specific engine configuration
// never leaks between calls.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/tanklink/fieldscan/pkg/provider/ocrengine"
)

// ConfidenceThreshold is the minimum recognition confidence (0-100 scale)
// a result needs before it can be accepted without a re-scan.
const ConfidenceThreshold = 30

// Acceptable reports whether a confidence value meets the gate. The boundary
// is inclusive: exactly 30 is acceptable.
func Acceptable(confidence float64) bool {
	return confidence >= ConfidenceThreshold
}

// Mode selects the recognition tuning and post-processing heuristic.
type Mode string

const (
	ModeGeneralText Mode = "generalText"
	ModeErrorCode   Mode = "errorCode"
	ModeBarcode     Mode = "barcode"
)

// Result is the structured outcome of one recognition.
type Result struct {
	// Text is the full recognized text.
	Text string
	// Confidence is the engine's confidence, 0 to 100.
	Confidence float64
	// Extracted is the mode-specific parsed value (error code or barcode).
	// Empty when no heuristic pattern matched.
	Extracted string
	// Corrected is true when Extracted was adjusted against the codebook.
	Corrected bool
}

// Option is a functional option for configuring a Service.
type Option func(*Service)

// WithCodebook enables fuzzy correction of extracted error codes against
// known equipment codes.
func WithCodebook(cb *Codebook) Option {
	return func(s *Service) {
		s.codebook = cb
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// Service wraps a shared [ocrengine.Engine] with lazy initialization,
// single-operation serialization and mode-specific extraction.
type Service struct {
	engine   ocrengine.Engine
	codebook *Codebook
	log      *slog.Logger

	// mu serializes engine operations. The engine's whitelist and
	// segmentation are shared mutable state.
	mu    sync.Mutex
	init  singleflight.Group
	ready atomic.Bool
}

// New creates a Service around engine. The engine is not touched until the
// first recognition or an explicit Warmup.
func New(engine ocrengine.Engine, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Warmup initializes the engine ahead of the first recognition. Concurrent
// callers share one initialization; a failed attempt may be retried.
func (s *Service) Warmup(ctx context.Context) error {
	return s.ensureReady(ctx)
}

func (s *Service) ensureReady(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	_, err, _ := s.init.Do("init", func() (any, error) {
		if s.ready.Load() {
			return nil, nil
		}
		if err := s.engine.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("ocr: initialize engine: %w", err)
		}
		if err := s.engine.SetParameters(ctx, ocrengine.GeneralText()); err != nil {
			return nil, fmt.Errorf("ocr: set default parameters: %w", err)
		}
		s.ready.Store(true)
		return nil, nil
	})
	return err
}

// RecognizeText runs general-purpose OCR over an encoded image.
func (s *Service) RecognizeText(ctx context.Context, image []byte) (Result, error) {
	if err := s.ensureReady(ctx); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.engine.Recognize(ctx, image)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: raw.Text, Confidence: raw.Confidence}, nil
}

// RecognizeErrorCode runs general OCR, then scans the text for an equipment
// error code. The full text is always returned even without a code match.
func (s *Service) RecognizeErrorCode(ctx context.Context, image []byte) (Result, error) {
	res, err := s.RecognizeText(ctx, image)
	if err != nil {
		return Result{}, err
	}
	if code, ok := ExtractErrorCode(res.Text); ok {
		res.Extracted, res.Corrected = s.correct(code)
	}
	return res, nil
}

// RecognizeBarcode retunes the engine for single-line uppercase recognition,
// runs OCR, and extracts a barcode candidate. The engine configuration is
// restored to the general defaults before returning, success or not.
func (s *Service) RecognizeBarcode(ctx context.Context, image []byte) (Result, error) {
	if err := s.ensureReady(ctx); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.SetParameters(ctx, ocrengine.BarcodeText()); err != nil {
		return Result{}, fmt.Errorf("ocr: set barcode parameters: %w", err)
	}
	defer func() {
		if err := s.engine.SetParameters(context.WithoutCancel(ctx), ocrengine.GeneralText()); err != nil {
			s.log.Warn("failed to restore default recognition parameters", "error", err)
		}
	}()

	raw, err := s.engine.Recognize(ctx, image)
	if err != nil {
		return Result{}, err
	}

	res := Result{Text: strings.TrimSpace(raw.Text), Confidence: raw.Confidence}
	if barcode, ok := ExtractBarcode(res.Text); ok {
		res.Extracted = barcode
	}
	return res, nil
}

// Recognize dispatches to the mode-specific recognition method.
func (s *Service) Recognize(ctx context.Context, image []byte, mode Mode) (Result, error) {
	switch mode {
	case ModeErrorCode:
		return s.RecognizeErrorCode(ctx, image)
	case ModeBarcode:
		return s.RecognizeBarcode(ctx, image)
	default:
		return s.RecognizeText(ctx, image)
	}
}

// correct applies codebook correction when a codebook is configured.
func (s *Service) correct(code string) (string, bool) {
	if s.codebook.Len() == 0 {
		return code, false
	}
	corrected, changed := s.codebook.Correct(code)
	if changed {
		s.log.Debug("corrected extracted code against codebook", "raw", code, "corrected", corrected)
	}
	return corrected, changed
}

// Close terminates the engine. Safe to call when the engine was never
// initialized.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready.Store(false)
	return s.engine.Terminate(ctx)
}
