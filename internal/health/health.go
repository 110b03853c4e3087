// Package health provides HTTP liveness and readiness handlers.
//
//   - /healthz — liveness probe; a process that can serve HTTP is alive.
//   - /readyz  — readiness probe; 200 only when every registered [Check]
//     passes.
//
// Responses are JSON with a top-level "status" ("ok" or "fail") and a
// "checks" map naming each probe's result.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness check.
const probeTimeout = 5 * time.Second

// Check is a named readiness probe. Probe returns nil when the dependency is
// healthy; it must respect context cancellation.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Ping adapts a bare ping function into a [Check]. Useful for database pools
// and provider clients that expose a Ping method.
func Ping(name string, ping func(ctx context.Context) error) Check {
	return Check{Name: name, Probe: ping}
}

// response is the JSON body served by both endpoints.
type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. The check list is fixed at
// construction; the handler is safe for concurrent use.
type Handler struct {
	checks []Check
}

// New creates a Handler evaluating the given checks, in order, on each
// /readyz request.
func New(checks ...Check) *Handler {
	c := make([]Check, len(checks))
	copy(c, checks)
	return &Handler{checks: c}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz returns 200 only when every check passes. Each probe runs under a
// deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(h.checks))
	ready := true

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.Probe(ctx)
		cancel()

		if err != nil {
			results[c.Name] = "fail: " + err.Error()
			ready = false
		} else {
			results[c.Name] = "ok"
		}
	}

	res := response{Status: "ok", Checks: results}
	status := http.StatusOK
	if !ready {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
