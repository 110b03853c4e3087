package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tanklink/fieldscan/internal/capture"
	"github.com/tanklink/fieldscan/internal/observe"
	"github.com/tanklink/fieldscan/internal/ocr"
	"github.com/tanklink/fieldscan/internal/scanlog"
	"github.com/tanklink/fieldscan/internal/voice"
	"github.com/tanklink/fieldscan/pkg/media"
)

// routes registers the JSON API. Voice endpoints drive the push-to-talk
// session; scan endpoints drive the capture dialog state machine.
func (a *App) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/voice/recording/start", a.handleRecordStart)
	mux.HandleFunc("POST /v1/voice/recording/stop", a.handleRecordStop)
	mux.HandleFunc("POST /v1/voice/speak", a.handleSpeak)
	mux.HandleFunc("GET /v1/voice/state", a.handleVoiceState)

	mux.HandleFunc("POST /v1/scan/open", a.handleScanOpen)
	mux.HandleFunc("POST /v1/scan/close", a.handleScanClose)
	mux.HandleFunc("POST /v1/scan/camera/start", a.handleCameraStart)
	mux.HandleFunc("POST /v1/scan/camera/stop", a.handleCameraStop)
	mux.HandleFunc("POST /v1/scan/camera/switch", a.handleCameraSwitch)
	mux.HandleFunc("POST /v1/scan/capture", a.handleCapture)
	mux.HandleFunc("POST /v1/scan/record", a.handleRecordClip)
	mux.HandleFunc("GET /v1/scan/devices", a.handleScanDevices)
	mux.HandleFunc("POST /v1/scan/retry", a.handleScanRetry)
	mux.HandleFunc("POST /v1/scan/accept", a.handleScanAccept)
	mux.HandleFunc("GET /v1/scan/state", a.handleScanState)
	mux.HandleFunc("GET /v1/scans", a.handleRecentScans)
}

// ─── Voice ───────────────────────────────────────────────────────────────────

func (a *App) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if err := a.voice.StartRecording(r.Context()); err != nil {
		a.writeError(w, err, media.KindAudio)
		return
	}
	writeJSON(w, http.StatusOK, a.voice.State())
}

type transcriptResponse struct {
	Text string `json:"text"`
}

func (a *App) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	text, err := a.voice.StopRecording(r.Context())
	if err != nil {
		a.writeError(w, err, media.KindAudio)
		return
	}
	if text != "" {
		if err := a.journal.RecordTranscript(r.Context(), text); err != nil {
			slog.Warn("journal transcript failed", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, transcriptResponse{Text: text})
}

type speakRequest struct {
	Text string `json:"text"`
}

func (a *App) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}
	if err := a.voice.PlayResponse(r.Context(), req.Text); err != nil {
		a.writeError(w, err, media.KindAudio)
		return
	}
	writeJSON(w, http.StatusOK, a.voice.State())
}

func (a *App) handleVoiceState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.voice.State())
}

// ─── Scan ────────────────────────────────────────────────────────────────────

type scanStateResponse struct {
	State  capture.State `json:"state"`
	Result *scanResult   `json:"result,omitempty"`
}

type scanResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Extracted  string  `json:"extracted,omitempty"`
	Corrected  bool    `json:"corrected,omitempty"`
	Acceptable bool    `json:"acceptable"`
}

func (a *App) scanState() scanStateResponse {
	resp := scanStateResponse{State: a.scan.State()}
	if res := a.scan.Result(); res != nil {
		resp.Result = newScanResult(res)
	}
	return resp
}

func newScanResult(res *ocr.Result) *scanResult {
	return &scanResult{
		Text:       res.Text,
		Confidence: res.Confidence,
		Extracted:  res.Extracted,
		Corrected:  res.Corrected,
		Acceptable: ocr.Acceptable(res.Confidence),
	}
}

func (a *App) handleScanOpen(w http.ResponseWriter, r *http.Request) {
	if err := a.scan.Open(r.Context()); err != nil {
		a.writeError(w, err, media.KindVideo)
		return
	}
	writeJSON(w, http.StatusOK, a.scanState())
}

func (a *App) handleScanClose(w http.ResponseWriter, _ *http.Request) {
	a.scan.Close()
	writeJSON(w, http.StatusOK, a.scanState())
}

func (a *App) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	if err := a.scan.StartCamera(r.Context()); err != nil {
		a.writeError(w, err, media.KindVideo)
		return
	}
	writeJSON(w, http.StatusOK, a.scanState())
}

func (a *App) handleCameraStop(w http.ResponseWriter, _ *http.Request) {
	if err := a.scan.StopCamera(); err != nil {
		a.writeError(w, err, media.KindVideo)
		return
	}
	writeJSON(w, http.StatusOK, a.scanState())
}

func (a *App) handleCameraSwitch(w http.ResponseWriter, r *http.Request) {
	if err := a.scan.SwitchCamera(r.Context()); err != nil {
		a.writeError(w, err, media.KindVideo)
		return
	}
	writeJSON(w, http.StatusOK, a.scanState())
}

func (a *App) handleCapture(w http.ResponseWriter, r *http.Request) {
	res, err := a.scan.Capture(r.Context())
	if err != nil {
		a.writeError(w, err, media.KindVideo)
		return
	}

	mode := string(a.cfg.Scan.DefaultMode)
	a.metrics.RecordScan(r.Context(), mode, "captured")
	if err := a.journal.RecordScan(r.Context(), scanlog.Entry{
		Mode:       mode,
		Text:       res.Text,
		Extracted:  res.Extracted,
		Confidence: res.Confidence,
	}); err != nil {
		slog.Warn("journal scan failed", "err", err)
	}

	writeJSON(w, http.StatusOK, a.scanState())
}

func (a *App) handleRecordClip(w http.ResponseWriter, r *http.Request) {
	seconds := 5
	if q := r.URL.Query().Get("seconds"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 60 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "seconds must be between 1 and 60"})
			return
		}
		seconds = n
	}

	clip, err := a.scan.RecordClip(r.Context(), time.Duration(seconds)*time.Second)
	if err != nil {
		a.writeError(w, err, media.KindVideo)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(clip); err != nil {
		slog.Warn("write clip failed", "err", err)
	}
}

type cameraInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (a *App) handleScanDevices(w http.ResponseWriter, r *http.Request) {
	inputs := a.scan.Cameras(r.Context())
	out := make([]cameraInfo, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, cameraInfo{ID: in.ID, Label: in.Label})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleScanRetry(w http.ResponseWriter, _ *http.Request) {
	if err := a.scan.Retry(); err != nil {
		a.writeError(w, err, media.KindVideo)
		return
	}
	writeJSON(w, http.StatusOK, a.scanState())
}

type acceptResponse struct {
	Text string `json:"text"`
}

func (a *App) handleScanAccept(w http.ResponseWriter, r *http.Request) {
	res := a.scan.Result()

	text, err := a.scan.AcceptResult()
	if err != nil {
		a.writeError(w, err, media.KindVideo)
		return
	}

	mode := string(a.cfg.Scan.DefaultMode)
	a.metrics.RecordScan(r.Context(), mode, "accepted")
	if res != nil {
		if err := a.journal.RecordScan(r.Context(), scanlog.Entry{
			Mode:       mode,
			Text:       res.Text,
			Extracted:  res.Extracted,
			Confidence: res.Confidence,
			Accepted:   true,
		}); err != nil {
			slog.Warn("journal scan failed", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, acceptResponse{Text: text})
}

func (a *App) handleScanState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.scanState())
}

type recentScan struct {
	ID         int64   `json:"id"`
	Mode       string  `json:"mode"`
	Text       string  `json:"text"`
	Extracted  string  `json:"extracted,omitempty"`
	Confidence float64 `json:"confidence"`
	Accepted   bool    `json:"accepted"`
	CreatedAt  string  `json:"createdAt"`
}

func (a *App) handleRecentScans(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	entries, err := a.journal.RecentScans(r.Context(), limit)
	if err != nil {
		slog.Error("recent scans query failed", "err", err,
			"correlation_id", observe.CorrelationID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "journal unavailable"})
		return
	}

	out := make([]recentScan, 0, len(entries))
	for _, e := range entries {
		out = append(out, recentScan{
			ID:         e.ID,
			Mode:       e.Mode,
			Text:       e.Text,
			Extracted:  e.Extracted,
			Confidence: e.Confidence,
			Accepted:   e.Accepted,
			CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── Error mapping ───────────────────────────────────────────────────────────

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps subsystem errors onto HTTP statuses. Device acquisition
// failures carry the technician-facing guidance message; state-machine
// violations are conflicts the client can recover from by refreshing state.
func (a *App) writeError(w http.ResponseWriter, err error, kind media.Kind) {
	switch {
	case errors.Is(err, voice.ErrAlreadyRecording),
		errors.Is(err, voice.ErrAlreadyPlaying),
		errors.Is(err, capture.ErrInvalidState),
		errors.Is(err, capture.ErrBusy),
		errors.Is(err, capture.ErrClosed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})

	case errors.Is(err, capture.ErrLowConfidence),
		errors.Is(err, capture.ErrNoFrame):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})

	case errors.Is(err, media.ErrNoDevice),
		errors.Is(err, media.ErrPermissionDenied),
		errors.Is(err, media.ErrDeviceBusy):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: media.Message(kind, err)})

	default:
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "err", err)
	}
}
