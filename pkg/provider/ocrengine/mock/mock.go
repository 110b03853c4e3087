// Package mock provides a mock implementation of ocrengine.Engine for use in
// unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/tanklink/fieldscan/pkg/provider/ocrengine"
)

// Compile-time assertion.
var _ ocrengine.Engine = (*Engine)(nil)

// Engine is a configurable mock implementation of ocrengine.Engine. It
// records the full parameter history so tests can assert that barcode
// parameters are restored after use.
type Engine struct {
	mu sync.Mutex

	// Result is returned by Recognize on success. When Results is non-empty
	// it takes precedence and entries are consumed one per call, the last
	// entry repeating.
	Result  ocrengine.Result
	Results []ocrengine.Result

	// InitializeErr, RecognizeErr, SetParametersErr and TerminateErr, when
	// set, are returned by the corresponding method.
	InitializeErr    error
	RecognizeErr     error
	SetParametersErr error
	TerminateErr     error

	// InitDelay, when non-nil, blocks Initialize until closed or ctx is done.
	InitDelay chan struct{}

	initialized    bool
	initializeN    int
	terminateN     int
	recognizeN     int
	paramHistory   []ocrengine.Params
	recognizedImgs [][]byte
}

// Initialize records the call and honors InitDelay and InitializeErr.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	e.initializeN++
	delay := e.InitDelay
	e.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if e.InitializeErr != nil {
		return e.InitializeErr
	}
	e.mu.Lock()
	e.initialized = true
	e.mu.Unlock()
	return nil
}

// Recognize returns the next configured result.
func (e *Engine) Recognize(_ context.Context, image []byte) (ocrengine.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ocrengine.Result{}, ocrengine.ErrNotInitialized
	}
	e.recognizedImgs = append(e.recognizedImgs, image)
	idx := e.recognizeN
	e.recognizeN++
	if e.RecognizeErr != nil {
		return ocrengine.Result{}, e.RecognizeErr
	}
	if len(e.Results) > 0 {
		if idx >= len(e.Results) {
			idx = len(e.Results) - 1
		}
		return e.Results[idx], nil
	}
	return e.Result, nil
}

// SetParameters appends to the recorded parameter history.
func (e *Engine) SetParameters(_ context.Context, p ocrengine.Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ocrengine.ErrNotInitialized
	}
	if e.SetParametersErr != nil {
		return e.SetParametersErr
	}
	e.paramHistory = append(e.paramHistory, p)
	return nil
}

// Terminate marks the engine terminated.
func (e *Engine) Terminate(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.terminateN++
	if e.TerminateErr != nil {
		return e.TerminateErr
	}
	e.initialized = false
	return nil
}

// Initialized reports whether the engine is currently initialized.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// InitializeCount returns how many times Initialize was called.
func (e *Engine) InitializeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initializeN
}

// TerminateCount returns how many times Terminate was called.
func (e *Engine) TerminateCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminateN
}

// RecognizeCount returns how many times Recognize was called.
func (e *Engine) RecognizeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recognizeN
}

// ParamHistory returns a copy of every SetParameters payload in order.
func (e *Engine) ParamHistory() []ocrengine.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ocrengine.Params, len(e.paramHistory))
	copy(out, e.paramHistory)
	return out
}

// RecognizedImages returns the images passed to Recognize in order.
func (e *Engine) RecognizedImages() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]byte, len(e.recognizedImgs))
	copy(out, e.recognizedImgs)
	return out
}
