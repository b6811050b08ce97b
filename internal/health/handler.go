// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 3 * time.Second

const (
	statusOK           = "ok"
	statusDegraded     = "degraded"
	statusUnavailable  = "unavailable"
	statusNotReady     = "not_ready"
	statusShuttingDown = "shutting_down"
)

type Checker interface {
	Ping(ctx context.Context) error
}

// Dependency is one backing service probed by readiness. An optional
// dependency that fails marks the instance degraded but keeps it in
// rotation.
type Dependency struct {
	Name     string
	Checker  Checker
	Optional bool
}

type Handler struct {
	deps     []Dependency
	ready    atomic.Bool
	draining atomic.Bool
}

func NewHandler(deps ...Dependency) *Handler {
	h := &Handler{deps: deps}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.draining.Load() {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: statusShuttingDown})
		return
	}
	writeStatus(w, http.StatusOK, StatusResponse{Status: statusOK})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.draining.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: statusShuttingDown})
		return
	case !h.ready.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: statusNotReady})
		return
	}

	checks := h.probe(r.Context())

	status, code := statusOK, http.StatusOK
	for i, c := range checks {
		if c.Healthy {
			continue
		}
		if !h.deps[i].Optional {
			status, code = statusUnavailable, http.StatusServiceUnavailable
			break
		}
		status = statusDegraded
	}

	writeStatus(w, code, ReadinessResponse{Status: status, Checks: checks})
}

// probe pings every dependency concurrently. Results keep registration order.
func (h *Handler) probe(ctx context.Context) []HealthCheck {
	checks := make([]HealthCheck, len(h.deps))

	var wg sync.WaitGroup
	for i, dep := range h.deps {
		wg.Go(func() {
			checks[i] = ping(ctx, dep)
		})
	}
	wg.Wait()

	return checks
}

func ping(ctx context.Context, dep Dependency) HealthCheck {
	hc := HealthCheck{Name: dep.Name, Optional: dep.Optional}

	if dep.Checker == nil {
		hc.Message = dep.Name + " checker not configured"
		return hc
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := dep.Checker.Ping(ctx)
	hc.Latency = time.Since(start).Round(time.Microsecond).String()

	if err != nil {
		hc.Message = "ping failed"
		return hc
	}

	hc.Healthy = true
	return hc
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetShutdown fails both probes so the orchestrator stops routing here
// before the listener closes.
func (h *Handler) SetShutdown(shutdown bool) {
	h.draining.Store(shutdown)
}

func writeStatus(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(body)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Message  string `json:"message,omitempty"`
}
