package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"framefolio/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

const probeTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	// Ingest state
	ActiveJobs          int `json:"activeJobs"`
	AwaitingDuplicate   int `json:"awaitingDuplicate"`
	AwaitingPositioning int `json:"awaitingPositioning"`
	LibraryImages       int `json:"libraryImages"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	active, dup, pos := h.tracker.Counts()
	response := HealthResponse{
		Status:              statusHealthy,
		Ready:               true,
		Version:             startup.Version,
		Uptime:              time.Since(h.startTime).Round(time.Second).String(),
		ActiveJobs:          active,
		AwaitingDuplicate:   dup,
		AwaitingPositioning: pos,
		GoVersion:           runtime.Version(),
		NumCPU:              runtime.NumCPU(),
		NumGoroutine:        runtime.NumGoroutine(),
	}

	if err := h.store.Ping(ctx); err != nil {
		response.Status = statusDegraded
		response.Ready = false
		response.Error = err.Error()
	} else if n, err := h.store.CountImages(ctx); err == nil {
		response.LibraryImages = n
	}

	code := http.StatusOK
	if !response.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSONStatusCode(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the record store answers.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
		})
		return
	}
	writeJSONStatusCode(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
