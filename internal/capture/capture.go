// Package capture coordinates the scan dialog: camera preview, frame
// capture, and dispatch to text recognition, with a state machine that
// guarantees hardware release and a stable, re-triggerable UI state on every
// failure path.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tanklink/fieldscan/internal/ocr"
	"github.com/tanklink/fieldscan/pkg/media"
)

// State is one node of the scan dialog state machine.
type State string

const (
	// StateClosed means the dialog is not open.
	StateClosed State = "closed"
	// StateCameraOff means the dialog is open but the camera has not been
	// started yet.
	StateCameraOff State = "cameraOff"
	// StateCameraOn means the camera preview is live and a capture can be
	// triggered.
	StateCameraOn State = "cameraOn"
	// StateProcessing means a captured frame is being recognized.
	StateProcessing State = "processing"
	// StateResultShown means a recognition result is awaiting the user's
	// accept or retry decision.
	StateResultShown State = "resultShown"
)

// Sentinel errors returned by the orchestrator.
var (
	// ErrInvalidState is returned when an operation is not legal in the
	// current state.
	ErrInvalidState = errors.New("capture: operation not valid in current state")
	// ErrBusy is returned by Capture while another capture is processing.
	ErrBusy = errors.New("capture: recognition already in progress")
	// ErrClosed is returned when the dialog closed while a capture was in
	// flight; the result has been discarded.
	ErrClosed = errors.New("capture: closed during recognition")
	// ErrLowConfidence is returned by AcceptResult when the result does not
	// meet the confidence gate. Not a failure: the user should reposition
	// and re-scan.
	ErrLowConfidence = errors.New("capture: recognition confidence too low")
	// ErrNoFrame is returned when the camera produced no usable still frame.
	ErrNoFrame = errors.New("capture: no frame available")
)

// Orchestrator drives one scan dialog. Methods are safe for concurrent use;
// at most one recognition runs at a time.
type Orchestrator struct {
	acquirer *media.Acquirer
	ocr      *ocr.Service
	mode     ocr.Mode
	log      *slog.Logger

	mu      sync.Mutex
	state   State
	session *media.Session
	result  *ocr.Result
	// epoch increments on every Close. A capture started under an older
	// epoch discards its result on arrival.
	epoch uint64
}

// New creates an Orchestrator in the Closed state. mode selects the
// recognition heuristic applied to captured frames.
func New(acquirer *media.Acquirer, svc *ocr.Service, mode ocr.Mode, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		acquirer: acquirer,
		ocr:      svc,
		mode:     mode,
		log:      log,
		state:    StateClosed,
	}
}

// State returns the current state machine node.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Result returns the recognition result being shown, or nil outside
// ResultShown.
func (o *Orchestrator) Result() *ocr.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Open opens the dialog and kicks off recognition engine warmup in the
// background. Warmup failures are logged, never fatal: the engine retries
// initialization on first capture.
func (o *Orchestrator) Open(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateClosed {
		return fmt.Errorf("%w: open from %s", ErrInvalidState, o.state)
	}
	o.state = StateCameraOff

	go func() {
		if err := o.ocr.Warmup(context.WithoutCancel(ctx)); err != nil {
			o.log.Warn("recognition engine warmup failed", "error", err)
		}
	}()
	return nil
}

// StartCamera acquires the camera preview, preferring the rear camera. A
// classified acquisition failure leaves the dialog in CameraOff so the user
// can retry; use [media.Message] for the user-facing text.
func (o *Orchestrator) StartCamera(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateCameraOff {
		return fmt.Errorf("%w: start camera from %s", ErrInvalidState, o.state)
	}

	session, err := o.acquirer.AcquireVideo(ctx, media.FacingEnvironment)
	if err != nil {
		return err
	}
	o.session = session
	o.state = StateCameraOn
	return nil
}

// StopCamera releases the camera and returns to CameraOff.
func (o *Orchestrator) StopCamera() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateCameraOn {
		return fmt.Errorf("%w: stop camera from %s", ErrInvalidState, o.state)
	}
	o.releaseCameraLocked()
	o.state = StateCameraOff
	return nil
}

// SwitchCamera toggles between front and rear cameras. Only valid while the
// preview is live.
func (o *Orchestrator) SwitchCamera(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateCameraOn {
		o.mu.Unlock()
		return fmt.Errorf("%w: switch camera from %s", ErrInvalidState, o.state)
	}
	o.mu.Unlock()

	session, err := o.acquirer.SwitchFacing(ctx)
	if err != nil {
		return err
	}

	o.mu.Lock()
	if o.state == StateCameraOn {
		o.session = session
	}
	o.mu.Unlock()
	return nil
}

// RecordClip records a video clip of the given duration from the live
// preview. Only valid in CameraOn; recording does not change the dialog
// state, so a capture can follow immediately.
func (o *Orchestrator) RecordClip(ctx context.Context, d time.Duration) ([]byte, error) {
	o.mu.Lock()
	if o.state != StateCameraOn {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: record from %s", ErrInvalidState, o.state)
	}
	session := o.session
	o.mu.Unlock()

	video := session.Video()
	if video == nil {
		return nil, ErrNoFrame
	}
	clip, err := video.Record(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("capture: record clip: %w", err)
	}
	return clip, nil
}

// Cameras lists the available video inputs. Enumeration failures degrade to
// an empty list.
func (o *Orchestrator) Cameras(ctx context.Context) []media.DeviceInfo {
	return o.acquirer.EnumerateVideoInputs(ctx)
}

// Capture snapshots the current preview frame and recognizes it. On success
// the dialog transitions to ResultShown; a recognition failure returns the
// dialog to CameraOn. A second Capture while one is processing returns
// ErrBusy. If the dialog closes mid-recognition the result is discarded and
// ErrClosed returned.
func (o *Orchestrator) Capture(ctx context.Context) (*ocr.Result, error) {
	o.mu.Lock()
	switch o.state {
	case StateProcessing:
		o.mu.Unlock()
		return nil, ErrBusy
	case StateCameraOn:
	default:
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: capture from %s", ErrInvalidState, o.state)
	}
	session := o.session
	epoch := o.epoch
	o.state = StateProcessing
	o.result = nil
	o.mu.Unlock()

	video := session.Video()
	if video == nil {
		return nil, o.finishCapture(epoch, nil, ErrNoFrame)
	}
	frame, err := video.Snapshot(ctx)
	if err != nil {
		return nil, o.finishCapture(epoch, nil, fmt.Errorf("capture: snapshot: %w", err))
	}
	if len(frame) == 0 {
		return nil, o.finishCapture(epoch, nil, ErrNoFrame)
	}

	res, err := o.ocr.Recognize(ctx, frame, o.mode)
	if err != nil {
		return nil, o.finishCapture(epoch, nil, fmt.Errorf("capture: recognize: %w", err))
	}
	if err := o.finishCapture(epoch, &res, nil); err != nil {
		return nil, err
	}
	return &res, nil
}

// finishCapture applies the outcome of a recognition, discarding it when the
// dialog closed in the meantime. On failure the dialog returns to CameraOn.
func (o *Orchestrator) finishCapture(epoch uint64, res *ocr.Result, opErr error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.epoch != epoch || o.state != StateProcessing {
		o.log.Debug("discarding recognition result after close")
		return ErrClosed
	}
	if opErr != nil {
		o.state = StateCameraOn
		return opErr
	}
	o.result = res
	o.state = StateResultShown
	return nil
}

// Retry discards the shown result and returns to the live preview for
// another attempt.
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateResultShown {
		return fmt.Errorf("%w: retry from %s", ErrInvalidState, o.state)
	}
	o.result = nil
	o.state = StateCameraOn
	return nil
}

// AcceptResult emits the extracted value (or the full recognized text when
// no heuristic matched) and closes the dialog. Results below the confidence
// gate are rejected with ErrLowConfidence and the dialog stays on the result
// for an explicit retry.
func (o *Orchestrator) AcceptResult() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateResultShown || o.result == nil {
		return "", fmt.Errorf("%w: accept from %s", ErrInvalidState, o.state)
	}
	if !ocr.Acceptable(o.result.Confidence) {
		return "", ErrLowConfidence
	}

	text := o.result.Extracted
	if text == "" {
		text = o.result.Text
	}
	o.closeLocked()
	return text, nil
}

// Close releases the camera and returns to Closed unconditionally, from any
// state. An outstanding recognition's result is discarded on arrival.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
}

func (o *Orchestrator) closeLocked() {
	o.releaseCameraLocked()
	o.result = nil
	o.epoch++
	o.state = StateClosed
}

func (o *Orchestrator) releaseCameraLocked() {
	if o.session != nil {
		o.acquirer.Release(o.session)
		o.session = nil
	}
}
