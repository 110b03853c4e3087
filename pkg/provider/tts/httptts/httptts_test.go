package httptts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tanklink/fieldscan/pkg/provider/tts"
)

// newServer starts an httptest server that records the request body and
// replies with the given status, content type and payload.
func newServer(t *testing.T, status int, contentType string, payload []byte) (*httptest.Server, *[]byte) {
	t.Helper()
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/speech-synthesis" {
			t.Errorf("path = %q, want /speech-synthesis", r.URL.Path)
		}
		body, _ = io.ReadAll(r.Body)
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &body
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") should return an error")
	}
}

func TestSynthesizeSuccess(t *testing.T) {
	want := []byte{0x01, 0x02, 0x03, 0x04}
	srv, body := newServer(t, http.StatusOK, "audio/mpeg", want)

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	audio, mimeType, err := c.Synthesize(context.Background(), "tank level nominal")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(audio, want) {
		t.Errorf("audio = %v, want %v", audio, want)
	}
	if mimeType != "audio/mpeg" {
		t.Errorf("mimeType = %q, want audio/mpeg", mimeType)
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(*body, &req); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if req.Text != "tank level nominal" {
		t.Errorf("request text = %q", req.Text)
	}
}

func TestSynthesizeMissingContentType(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, "", []byte{0xFF})

	c, _ := New(srv.URL)
	_, mimeType, err := c.Synthesize(context.Background(), "ok")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if mimeType != fallbackMIME {
		t.Errorf("mimeType = %q, want %q", mimeType, fallbackMIME)
	}
}

func TestSynthesizeServerError(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, "", nil)

	c, _ := New(srv.URL)
	_, _, err := c.Synthesize(context.Background(), "boom")
	if !errors.Is(err, tts.ErrSynthesisFailed) {
		t.Fatalf("err = %v, want ErrSynthesisFailed", err)
	}
}

func TestSynthesizeTransportError(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, "audio/mpeg", nil)
	url := srv.URL
	srv.Close()

	c, _ := New(url)
	_, _, err := c.Synthesize(context.Background(), "unreachable")
	if !errors.Is(err, tts.ErrSynthesisFailed) {
		t.Fatalf("err = %v, want ErrSynthesisFailed", err)
	}
}
