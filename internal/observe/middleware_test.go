package observe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func withTestTracer(t *testing.T) {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestMiddlewareRecordsAndPropagates(t *testing.T) {
	withTestTracer(t)
	m, reader := newTestMetrics(t)

	var sawCorrelation string
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawCorrelation = CorrelationID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/scan", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d", rr.Code)
	}
	if sawCorrelation == "" {
		t.Error("handler context carries no trace ID")
	}
	if got := rr.Header().Get("X-Correlation-ID"); got != sawCorrelation {
		t.Errorf("X-Correlation-ID = %q, want %q", got, sawCorrelation)
	}

	rm := collect(t, reader)
	met := findMetric(rm, "fieldscan.http.request.duration")
	if met == nil {
		t.Fatal("http request duration not recorded")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 1 {
		t.Error("expected one recorded request")
	}
}

func TestCorrelationIDWithoutSpan(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := CorrelationID(req.Context()); got != "" {
		t.Errorf("CorrelationID = %q, want empty", got)
	}
}
