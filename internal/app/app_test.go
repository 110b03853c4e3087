package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tanklink/fieldscan/internal/config"
	"github.com/tanklink/fieldscan/internal/scanlog"
	audiomock "github.com/tanklink/fieldscan/pkg/audio/mock"
	"github.com/tanklink/fieldscan/pkg/media"
	mediamock "github.com/tanklink/fieldscan/pkg/media/mock"
	"github.com/tanklink/fieldscan/pkg/provider/ocrengine"
	ocrmock "github.com/tanklink/fieldscan/pkg/provider/ocrengine/mock"
	sttmock "github.com/tanklink/fieldscan/pkg/provider/stt/mock"
	ttsmock "github.com/tanklink/fieldscan/pkg/provider/tts/mock"
)

// journalRecorder is an in-memory scanlog.Journal for handler tests.
type journalRecorder struct {
	mu          sync.Mutex
	scans       []scanlog.Entry
	transcripts []string
	recent      []scanlog.Entry
}

func (j *journalRecorder) RecordScan(_ context.Context, e scanlog.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.scans = append(j.scans, e)
	return nil
}

func (j *journalRecorder) RecordTranscript(_ context.Context, text string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transcripts = append(j.transcripts, text)
	return nil
}

func (j *journalRecorder) RecentScans(context.Context, int) ([]scanlog.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.recent, nil
}

func (j *journalRecorder) Close() {}

type fixture struct {
	app     *App
	stt     *sttmock.Transcriber
	tts     *ttsmock.Synthesizer
	engine  *ocrmock.Engine
	speaker *audiomock.Output
	device  *mediamock.Device
	journal *journalRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		stt:     &sttmock.Transcriber{Result: "tank four is low"},
		tts:     &ttsmock.Synthesizer{Audio: []byte("mp3"), MIMEType: "audio/mpeg"},
		engine:  &ocrmock.Engine{},
		speaker: &audiomock.Output{},
		device: &mediamock.Device{
			Video: &mediamock.VideoStream{SnapshotResult: []byte("frame")},
		},
		journal: &journalRecorder{},
	}

	cfg := &config.Config{
		Server: config.ServerConfig{ListenAddr: ":0", LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			STT: config.ProviderEntry{Name: "backend"},
			TTS: config.ProviderEntry{Name: "backend"},
			OCR: config.ProviderEntry{Name: "tessd"},
		},
		Scan: config.ScanConfig{DefaultMode: config.ScanErrorCode},
	}

	a, err := New(context.Background(), cfg, Providers{
		STT:     f.stt,
		TTS:     f.tts,
		OCR:     f.engine,
		Speaker: f.speaker,
		Device:  f.device,
	}, WithJournal(f.journal))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.app = a
	t.Cleanup(func() { a.Shutdown(context.Background()) })
	return f
}

// do issues a request against the app's handler and decodes the JSON reply.
func (f *fixture) do(t *testing.T, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.app.srv.Handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response: %v (body %q)", method, path, err, rec.Body.String())
		}
	}
	return rec
}

func ocrResult(text string, confidence float64) ocrengine.Result {
	return ocrengine.Result{Text: text, Confidence: confidence}
}

func TestNewRejectsMissingProviders(t *testing.T) {
	cfg := &config.Config{}
	_, err := New(context.Background(), cfg, Providers{})
	if err == nil {
		t.Fatal("New accepted empty providers")
	}
}

func TestStopWithoutStartReturnsEmptyTranscript(t *testing.T) {
	f := newFixture(t)

	var resp transcriptResponse
	rec := f.do(t, http.MethodPost, "/v1/voice/recording/stop", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rec.Code)
	}
	if resp.Text != "" {
		t.Fatalf("text = %q, want empty", resp.Text)
	}
	if len(f.stt.Calls) != 0 {
		t.Fatalf("transcriber called %d times for empty recording", len(f.stt.Calls))
	}
	if len(f.journal.transcripts) != 0 {
		t.Fatal("empty transcript was journalled")
	}
}

func TestSpeakSynthesizesAndPlays(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/voice/speak", `{"text":"Reading is 47 inches"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("speak status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := len(f.tts.Calls); got != 1 {
		t.Fatalf("synthesizer calls = %d, want 1", got)
	}
	if got := len(f.speaker.Opened); got != 1 {
		t.Fatalf("playbacks opened = %d, want 1", got)
	}
	if pb := f.speaker.Opened[0]; pb.ReleaseCount() == 0 {
		t.Error("playback was not released")
	}
}

func TestSpeakRejectsEmptyText(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/voice/speak", `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestScanDialogFlow(t *testing.T) {
	f := newFixture(t)
	f.engine.Result = ocrResult("ERROR: 47", 82)

	var st scanStateResponse
	f.do(t, http.MethodPost, "/v1/scan/open", "", &st)
	if st.State != "cameraOff" {
		t.Fatalf("after open state = %q", st.State)
	}

	f.do(t, http.MethodPost, "/v1/scan/camera/start", "", &st)
	if st.State != "cameraOn" {
		t.Fatalf("after camera start state = %q", st.State)
	}

	rec := f.do(t, http.MethodPost, "/v1/scan/capture", "", &st)
	if rec.Code != http.StatusOK {
		t.Fatalf("capture status = %d, body %s", rec.Code, rec.Body.String())
	}
	if st.State != "resultShown" {
		t.Fatalf("after capture state = %q", st.State)
	}
	if st.Result == nil || st.Result.Extracted != "47" {
		t.Fatalf("capture result = %+v, want extracted 47", st.Result)
	}
	if !st.Result.Acceptable {
		t.Error("confidence 82 should be acceptable")
	}

	var accepted acceptResponse
	f.do(t, http.MethodPost, "/v1/scan/accept", "", &accepted)
	if accepted.Text != "47" {
		t.Fatalf("accepted text = %q, want 47", accepted.Text)
	}

	f.do(t, http.MethodGet, "/v1/scan/state", "", &st)
	if st.State != "closed" {
		t.Fatalf("after accept state = %q", st.State)
	}

	f.journal.mu.Lock()
	defer f.journal.mu.Unlock()
	if len(f.journal.scans) != 2 {
		t.Fatalf("journalled %d scans, want capture + accept", len(f.journal.scans))
	}
	if f.journal.scans[0].Accepted || !f.journal.scans[1].Accepted {
		t.Errorf("accepted flags = %v, %v", f.journal.scans[0].Accepted, f.journal.scans[1].Accepted)
	}
	if f.journal.scans[1].Mode != "errorCode" {
		t.Errorf("journalled mode = %q", f.journal.scans[1].Mode)
	}
}

func TestLowConfidenceResultCannotBeAccepted(t *testing.T) {
	f := newFixture(t)
	f.engine.Result = ocrResult("ERROR: 47", 20)

	f.do(t, http.MethodPost, "/v1/scan/open", "", nil)
	f.do(t, http.MethodPost, "/v1/scan/camera/start", "", nil)
	f.do(t, http.MethodPost, "/v1/scan/capture", "", nil)

	rec := f.do(t, http.MethodPost, "/v1/scan/accept", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("accept status = %d, want 422", rec.Code)
	}

	var st scanStateResponse
	f.do(t, http.MethodPost, "/v1/scan/retry", "", &st)
	if st.State != "cameraOn" {
		t.Fatalf("after retry state = %q", st.State)
	}
}

func TestCameraFailureMapsToServiceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.device.OpenVideoErr = media.ErrPermissionDenied

	f.do(t, http.MethodPost, "/v1/scan/open", "", nil)
	rec := f.do(t, http.MethodPost, "/v1/scan/camera/start", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Camera access denied") {
		t.Fatalf("body %q missing technician guidance", rec.Body.String())
	}
}

func TestCaptureOutsideCameraOnConflicts(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/scan/capture", "", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestRecordClipEndpoint(t *testing.T) {
	f := newFixture(t)
	f.device.Video.RecordResult = []byte("clip-bytes")

	f.do(t, http.MethodPost, "/v1/scan/open", "", nil)
	f.do(t, http.MethodPost, "/v1/scan/camera/start", "", nil)

	rec := f.do(t, http.MethodPost, "/v1/scan/record?seconds=2", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("record status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Body.String() != "clip-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/v1/scan/record?seconds=999", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("seconds=999 status = %d, want 400", rec.Code)
	}
}

func TestScanDevicesEndpoint(t *testing.T) {
	f := newFixture(t)
	f.device.VideoInputsResult = []media.DeviceInfo{{ID: "cam0", Label: "Back Camera"}}

	var out []cameraInfo
	rec := f.do(t, http.MethodGet, "/v1/scan/devices", "", &out)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(out) != 1 || out[0].Label != "Back Camera" {
		t.Fatalf("devices = %+v", out)
	}
}

func TestRecentScansEndpoint(t *testing.T) {
	f := newFixture(t)
	f.journal.recent = []scanlog.Entry{
		{ID: 2, Mode: "barcode", Text: "012345678905", Confidence: 88, Accepted: true},
		{ID: 1, Mode: "errorCode", Text: "ERROR: 47", Extracted: "47", Confidence: 75},
	}

	var out []recentScan
	rec := f.do(t, http.MethodGet, "/v1/scans?limit=10", "", &out)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(out) != 2 || out[0].ID != 2 || out[1].Extracted != "47" {
		t.Fatalf("unexpected entries: %+v", out)
	}

	rec = f.do(t, http.MethodGet, "/v1/scans?limit=0", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("limit=0 status = %d, want 400", rec.Code)
	}
}

func TestReadinessWarmsEngine(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, body %s", rec.Code, rec.Body.String())
	}
	if f.engine.InitializeCount() == 0 {
		t.Error("readiness probe did not warm the OCR engine")
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
}
