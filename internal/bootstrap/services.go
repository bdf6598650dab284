package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/openvid/openvid/config"
	"github.com/openvid/openvid/internal/adapters/runpod"
	"github.com/openvid/openvid/internal/core"
	"github.com/openvid/openvid/internal/data"
	"github.com/openvid/openvid/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Videos  *service.VideoService
	Quota   *service.QuotaService
	Webhook *service.WebhookService
	Retry   *service.RetryService
	Runner  core.RunnerClient

	JobRepo  *data.JobRepo
	UserRepo *data.UserRepo
	Limiter  *data.RedisRateLimitRepo
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices builds the full service graph over the given infrastructure.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jobRepo := data.NewJobRepo(deps.DB, data.JobRepoConfig{Logger: logger})
	userRepo := data.NewUserRepo(deps.DB)
	limiter := data.NewRedisRateLimitRepo(deps.RedisClient, data.RateLimitConfig{
		Limit:  cfg.Limits.RateLimitRequests,
		Window: cfg.Limits.RateLimitWindow,
	})

	runner, err := runpod.New(runpod.Options{
		APIKey:         cfg.Runner.APIKey,
		EndpointID:     cfg.Runner.EndpointID,
		BaseURL:        cfg.Runner.BaseURL,
		HTTPClient:     &http.Client{Timeout: cfg.Runner.RequestTimeout},
		Logger:         logger,
		MaxAttempts:    cfg.Runner.SubmitMaxAttempts,
		InitialBackoff: cfg.Runner.SubmitInitialBackoff,
	})
	if err != nil {
		return nil, fmt.Errorf("build runner client: %w", err)
	}

	rangeStart, rangeEnd, err := cfg.Limits.QuotaRange()
	if err != nil {
		return nil, fmt.Errorf("quota range: %w", err)
	}

	quota, err := service.NewQuotaService(service.QuotaServiceOptions{
		Repo:             userRepo,
		LimitSeconds:     cfg.Limits.MonthlyQuotaSeconds,
		CustomRangeStart: rangeStart,
		CustomRangeEnd:   rangeEnd,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build quota service: %w", err)
	}

	callback := service.CallbackConfig{
		BaseURL: cfg.HTTP.BaseURL,
		Token:   cfg.Runner.WebhookToken,
	}

	videos, err := service.NewVideoService(service.VideoServiceOptions{
		Jobs:     jobRepo,
		Runner:   runner,
		Limiter:  limiter,
		Quota:    quota,
		Gate:     service.NewConcurrencyGate(jobRepo, logger),
		Callback: callback,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build video service: %w", err)
	}

	retry, err := service.NewRetryService(service.RetryServiceOptions{
		Jobs:     jobRepo,
		Runner:   runner,
		Callback: callback,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build retry service: %w", err)
	}

	webhook, err := service.NewWebhookService(service.WebhookServiceOptions{
		Jobs:   jobRepo,
		Quota:  quota,
		Retry:  retry,
		Token:  cfg.Runner.WebhookToken,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build webhook service: %w", err)
	}

	return &ServiceContainer{
		Videos:   videos,
		Quota:    quota,
		Webhook:  webhook,
		Retry:    retry,
		Runner:   runner,
		JobRepo:  jobRepo,
		UserRepo: userRepo,
		Limiter:  limiter,
	}, nil
}
