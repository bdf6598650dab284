package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/openvid/openvid/internal/core"
	"github.com/openvid/openvid/internal/domain/model"
	apperrors "github.com/openvid/openvid/internal/errors"
)

// WebhookServiceOptions groups dependencies for WebhookService.
type WebhookServiceOptions struct {
	Jobs   core.JobRepository // Required
	Quota  *QuotaService      // Required: completion accounting
	Retry  *RetryService      // Required: failure handling
	Token  string             // Shared secret; empty means every callback is rejected
	Logger *slog.Logger       // Optional
}

// WebhookService reconciles job state from runner callbacks. It is the only
// component that moves a job to processing, completed, or failed; retries
// move failed back to queued through the RetryService.
//
// Callbacks may arrive duplicated or out of order. Updates are applied as
// blind partial overwrites keyed by runner job ID, so a replayed terminal
// callback is a no-op in effect and a stale callback wins if it arrives last.
type WebhookService struct {
	jobs   core.JobRepository
	quota  *QuotaService
	retry  *RetryService
	token  string
	logger *slog.Logger
}

// NewWebhookService constructs a WebhookService.
func NewWebhookService(opts WebhookServiceOptions) (*WebhookService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Quota == nil {
		return nil, errors.New("QuotaService is required")
	}
	if opts.Retry == nil {
		return nil, errors.New("RetryService is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "webhook_service")
	}

	return &WebhookService{
		jobs:   opts.Jobs,
		quota:  opts.Quota,
		retry:  opts.Retry,
		token:  opts.Token,
		logger: logger,
	}, nil
}

// HandleCallback authenticates and applies one runner callback, returning
// the job after the update. Error codes map to the webhook responses:
// unauthorized → 401, validation → 400, not_found → 404, internal → 500.
func (s *WebhookService) HandleCallback(
	ctx context.Context,
	token string,
	body []byte,
) (*model.Job, error) {
	// Fail closed when no secret is configured.
	if s.token == "" {
		return nil, apperrors.Unauthorized("webhook secret is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return nil, apperrors.Unauthorized("invalid webhook token")
	}

	var payload model.RunnerJobState
	if err := json.Unmarshal(body, &payload); err != nil {
		// Kept as a 500-class error for compatibility with the runner's
		// delivery retry behavior; see DESIGN.md.
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "invalid webhook payload")
	}

	if payload.ID == "" {
		return nil, apperrors.Validation("missing job id in webhook payload")
	}

	status, ok := model.StatusFromRunner(payload.Status)
	if !ok {
		return nil, apperrors.Validationf("unrecognized status %q", payload.Status)
	}

	existing, err := s.jobs.FindByJobID(ctx, payload.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFoundf("Video not found with jobId: %s", payload.ID)
		}
		return nil, err
	}

	upd := model.JobStatusUpdate{Status: status}
	if payload.Output != nil && payload.Output.Result != "" {
		upd.ResultURL = &payload.Output.Result
	}
	if errText := payload.ErrorText(); errText != "" {
		upd.ErrorMessage = &errText
	}

	updated, err := s.jobs.UpdateByJobID(ctx, payload.ID, upd)
	if err != nil {
		if apperrors.IsNotFound(err) {
			// The row vanished between the existence check and the update
			// (concurrent delete). A deleted job is never resurrected.
			return nil, apperrors.NotFoundf("Video not found with jobId: %s", payload.ID)
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job reconciled",
			"job_id", updated.JobID, "from", existing.Status, "to", updated.Status)
	}

	switch updated.Status {
	case model.JobStatusCompleted:
		// Account usage once per job, not once per delivery.
		if existing.Status != model.JobStatusCompleted {
			if err := s.quota.Increment(ctx, updated.UserID, updated.DurationSeconds()); err != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "usage accounting failed",
					"job_id", updated.JobID, "user_id", updated.UserID, "error", err)
			}
		}
	case model.JobStatusFailed:
		// Best-effort; the callback is acknowledged either way.
		if _, err := s.retry.MaybeRetry(ctx, updated); err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "automatic retry failed",
				"job_id", updated.JobID, "error", err)
		}
	case model.JobStatusQueued, model.JobStatusProcessing:
		// Progress updates need no side effects.
	}

	return updated, nil
}
