package httpx

import (
	"io"
	"net/http"

	"github.com/openvid/openvid/internal/service"
)

// maxWebhookBodyBytes bounds runner callback payloads.
const maxWebhookBodyBytes = 1 << 20

// WebhookHandlers receives status callbacks from the job runner.
type WebhookHandlers struct {
	Svc *service.WebhookService
}

// Receive handles POST /api/webhook/runpod. The runner retries failed
// deliveries, so the error body keeps the flat {"error": ...} shape it expects
// rather than the API error envelope.
func (h *WebhookHandlers) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeWebhookError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}

	job, err := h.Svc.HandleCallback(r.Context(), r.URL.Query().Get("token"), body)
	if err != nil {
		writeWebhookError(w, StatusForError(err), err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"jobId":  job.JobID,
	})
}

func writeWebhookError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, map[string]string{"error": message})
}
