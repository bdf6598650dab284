package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openvid/openvid/internal/core"
	"github.com/openvid/openvid/internal/domain/model"
	apperrors "github.com/openvid/openvid/internal/errors"
)

// VideoServiceOptions groups dependencies for VideoService.
type VideoServiceOptions struct {
	Jobs     core.JobRepository // Required
	Runner   core.RunnerClient  // Required
	Limiter  core.RateLimiter   // Required
	Quota    *QuotaService      // Required
	Gate     *ConcurrencyGate   // Required
	Callback CallbackConfig     // Required: webhook URL construction
	Logger   *slog.Logger       // Optional
}

// VideoService owns the submission pipeline and the owner-scoped job queries
// behind the video API.
type VideoService struct {
	jobs     core.JobRepository
	runner   core.RunnerClient
	limiter  core.RateLimiter
	quota    *QuotaService
	gate     *ConcurrencyGate
	callback CallbackConfig
	logger   *slog.Logger
}

// NewVideoService constructs a VideoService.
func NewVideoService(opts VideoServiceOptions) (*VideoService, error) {
	switch {
	case opts.Jobs == nil:
		return nil, errors.New("JobRepository is required")
	case opts.Runner == nil:
		return nil, errors.New("RunnerClient is required")
	case opts.Limiter == nil:
		return nil, errors.New("RateLimiter is required")
	case opts.Quota == nil:
		return nil, errors.New("QuotaService is required")
	case opts.Gate == nil:
		return nil, errors.New("ConcurrencyGate is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "video_service")
	}

	return &VideoService{
		jobs:     opts.Jobs,
		runner:   opts.Runner,
		limiter:  opts.Limiter,
		quota:    opts.Quota,
		gate:     opts.Gate,
		callback: opts.Callback,
		logger:   logger,
	}, nil
}

// Submit runs the admission pipeline and hands the request to the runner.
// Each step short-circuits with a typed rejection: rate limit, prompt
// validation, quota, concurrency, then the external submission with its own
// backoff, and finally persistence of the queued job record.
//
// The external submission happens before local persistence. If persistence
// fails the runner keeps working on a job this service no longer knows about;
// that gap is accepted and logged loudly so operators can reconcile.
func (s *VideoService) Submit(
	ctx context.Context,
	userID string,
	req *model.SubmitRequest,
) (*model.Job, error) {
	allowed, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "rate limit check failed")
	}
	if !allowed {
		return nil, apperrors.RateLimited("too many requests, please slow down")
	}

	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	duration := model.DurationSecondsForFrames(req.NumFrames())
	quotaDecision, err := s.quota.CheckAndReserve(ctx, userID, duration)
	if err != nil {
		return nil, err
	}
	if !quotaDecision.Allowed {
		return nil, apperrors.RateLimited("monthly generation quota exceeded")
	}

	gateDecision, err := s.gate.Check(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !gateDecision.Allowed {
		return nil, apperrors.RateLimited(gateDecision.Reason)
	}

	input := req.Input
	if input.PositivePrompt == "" {
		input.PositivePrompt = req.Prompt
	}
	if input.NumFrames == 0 {
		input.NumFrames = req.NumFrames()
	}

	jobID, err := s.runner.Submit(ctx, core.RunnerSubmission{
		Input:      input,
		WebhookURL: s.callback.URL(),
	})
	if err != nil {
		return nil, err
	}

	job := &model.Job{
		JobID:          jobID,
		UserID:         userID,
		Prompt:         req.Prompt,
		NegativePrompt: input.NegativePrompt,
		ModelName:      req.ModelName,
		Width:          input.Width,
		Height:         input.Height,
		Steps:          input.Steps,
		Cfg:            input.Cfg,
		NumFrames:      input.NumFrames,
		Seed:           input.Seed,
		Status:         model.JobStatusQueued,
	}

	created, err := s.jobs.Create(ctx, job)
	if err != nil {
		// The runner job is orphaned: it will keep running and its webhook
		// will land on a record that does not exist.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "job persisted nowhere after successful runner submission",
				"runner_job_id", jobID, "user_id", userID, "error", err)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to save job")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job submitted",
			"job_id", created.JobID, "user_id", userID, "duration_seconds", duration)
	}
	return created, nil
}

// List returns the caller's jobs newest first, optionally restricted to rows
// updated after since.
func (s *VideoService) List(
	ctx context.Context,
	userID string,
	since *time.Time,
) ([]*model.Job, error) {
	return s.jobs.ListByOwner(ctx, userID, since)
}

// Get returns one of the caller's jobs by runner job ID. Jobs owned by other
// users are reported as NotFound rather than Forbidden to avoid leaking job
// identifiers.
func (s *VideoService) Get(ctx context.Context, userID, jobID string) (*model.Job, error) {
	job, err := s.jobs.FindByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, apperrors.NotFoundf("Video not found with jobId: %s", jobID)
	}
	return job, nil
}

// Delete removes the caller's jobs matching the given runner job IDs and
// returns how many rows were removed.
func (s *VideoService) Delete(ctx context.Context, userID string, jobIDs []string) (int64, error) {
	deleted, err := s.jobs.DeleteByOwner(ctx, userID, jobIDs)
	if err != nil {
		return 0, err
	}
	if s.logger != nil && deleted > 0 {
		s.logger.InfoContext(ctx, "jobs deleted", "user_id", userID, "count", deleted)
	}
	return deleted, nil
}
