package httpx

import (
	"log/slog"
	"net/http"

	"github.com/openvid/openvid/internal/core"
	"github.com/openvid/openvid/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Videos  *service.VideoService
	Quota   *service.QuotaService
	Webhook *service.WebhookService
	Runner  core.RunnerClient
	Logger  *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	videoHandlers := &VideoHandlers{Svc: services.Videos, Quota: services.Quota}
	webhookHandlers := &WebhookHandlers{Svc: services.Webhook}
	healthHandlers := &RunnerHealthHandlers{Runner: services.Runner}

	requireUser := RequireUser()
	mux.Handle("POST /api/videos", requireUser(http.HandlerFunc(videoHandlers.Submit)))
	mux.Handle("GET /api/videos", requireUser(http.HandlerFunc(videoHandlers.List)))
	mux.Handle("GET /api/videos/{id}", requireUser(http.HandlerFunc(videoHandlers.Get)))
	mux.Handle("DELETE /api/videos", requireUser(http.HandlerFunc(videoHandlers.Delete)))
	mux.Handle("GET /api/quota", requireUser(http.HandlerFunc(videoHandlers.QuotaStatus)))

	// The webhook authenticates with its own shared-secret token.
	mux.Handle("POST /api/webhook/runpod", http.HandlerFunc(webhookHandlers.Receive))

	mux.Handle("GET /api/health", http.HandlerFunc(healthHandlers.Health))
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = RequestID()(handler)
	handler = Recover(logger)(handler)
	return handler
}
