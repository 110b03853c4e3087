package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthzAlwaysOK(t *testing.T) {
	h := New(Check{Name: "db", Probe: func(context.Context) error { return errors.New("down") }})

	rr := httptest.NewRecorder()
	h.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestReadyzAllPassing(t *testing.T) {
	h := New(
		Ping("db", func(context.Context) error { return nil }),
		Check{Name: "ocr", Probe: func(context.Context) error { return nil }},
	)

	rr := httptest.NewRecorder()
	h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var res struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if res.Status != "ok" {
		t.Errorf("status = %q", res.Status)
	}
	if res.Checks["db"] != "ok" || res.Checks["ocr"] != "ok" {
		t.Errorf("checks = %v", res.Checks)
	}
}

func TestReadyzFailingCheck(t *testing.T) {
	h := New(
		Ping("db", func(context.Context) error { return nil }),
		Check{Name: "ocr", Probe: func(context.Context) error { return errors.New("engine not warm") }},
	)

	rr := httptest.NewRecorder()
	h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	var res struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if res.Status != "fail" {
		t.Errorf("status = %q", res.Status)
	}
	if !strings.HasPrefix(res.Checks["ocr"], "fail:") {
		t.Errorf("ocr check = %q", res.Checks["ocr"])
	}
}

func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rr.Code)
		}
	}
}
