package httpx

import (
	"io"
	"net/http"

	"github.com/openvid/openvid/internal/core"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// RunnerHealthHandlers exposes the runner's endpoint health to API callers.
type RunnerHealthHandlers struct {
	Runner core.RunnerClient
}

// Health handles GET /api/health by passing through the runner's queue and
// worker counters.
func (h *RunnerHealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	health, err := h.Runner.Health(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, health)
}
