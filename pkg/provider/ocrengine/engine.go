// Package ocrengine defines the text-recognition engine abstraction used by
// the capture pipeline. An Engine is expensive to initialize and is shared
// across recognitions, so implementations must tolerate repeated Initialize
// calls and a Terminate that may never be preceded by Initialize.
package ocrengine

import (
	"context"
	"errors"
)

// Segmentation selects how the engine splits the image into text regions.
type Segmentation string

const (
	// SegmentBlock treats the image as a uniform block of text. This is the
	// default used for general label and display text.
	SegmentBlock Segmentation = "block"
	// SegmentSingleLine treats the image as a single text line, which works
	// better for barcode-style serial strips.
	SegmentSingleLine Segmentation = "singleLine"
)

// Params tunes the engine for a particular kind of text.
type Params struct {
	// Whitelist restricts recognition to the given characters. Empty means
	// no restriction.
	Whitelist string
	// Segmentation selects the page-segmentation behavior.
	Segmentation Segmentation
}

// GeneralText returns the default parameters for free-form label text:
// mixed-case alphanumerics plus common label punctuation, block segmentation.
func GeneralText() Params {
	return Params{
		Whitelist:    "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_/\\:. ",
		Segmentation: SegmentBlock,
	}
}

// BarcodeText returns parameters tuned for serial and barcode strips:
// uppercase alphanumerics only, single-line segmentation.
func BarcodeText() Params {
	return Params{
		Whitelist:    "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		Segmentation: SegmentSingleLine,
	}
}

// Result is the outcome of a single recognition.
type Result struct {
	// Text is the recognized text, whitespace included as produced by the
	// engine.
	Text string
	// Confidence is the engine's mean confidence for the page, 0 to 100.
	Confidence float64
}

// Sentinel errors returned by Engine implementations.
var (
	// ErrNotInitialized is returned by Recognize and SetParameters when the
	// engine has not been initialized.
	ErrNotInitialized = errors.New("ocrengine: engine not initialized")
	// ErrRecognitionFailed wraps transport or engine failures during
	// recognition.
	ErrRecognitionFailed = errors.New("ocrengine: recognition failed")
)

// Engine is a long-lived text-recognition worker.
//
// Initialize is idempotent: a second call on a live engine is a no-op.
// Terminate on a never-initialized engine is a no-op and returns nil.
type Engine interface {
	// Initialize prepares the engine for recognition. It must be called
	// before Recognize or SetParameters.
	Initialize(ctx context.Context) error
	// Recognize runs OCR over an encoded image (PNG or JPEG bytes).
	Recognize(ctx context.Context, image []byte) (Result, error)
	// SetParameters reconfigures the engine. Parameters persist across
	// recognitions until changed again.
	SetParameters(ctx context.Context, p Params) error
	// Terminate releases engine resources. The engine may be re-initialized
	// afterwards.
	Terminate(ctx context.Context) error
}
