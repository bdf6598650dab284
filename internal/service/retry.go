package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/openvid/openvid/internal/core"
	"github.com/openvid/openvid/internal/domain/model"
)

// MaxAutoRetries caps how many times a failed job is automatically
// resubmitted.
const MaxAutoRetries = 2

// retryableErrorSubstrings marks runner failures worth resubmitting. Matching
// is case-insensitive; anything else is terminal.
var retryableErrorSubstrings = []string{
	"timeout",
	"connection failed",
	"server error",
	"internal error",
	"503",
	"500",
}

// IsRetryableError reports whether the error text looks transient.
func IsRetryableError(errorMessage string) bool {
	msg := strings.ToLower(errorMessage)
	if msg == "" {
		return false
	}
	for _, sub := range retryableErrorSubstrings {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

// RetryServiceOptions groups dependencies for RetryService.
type RetryServiceOptions struct {
	Jobs       core.JobRepository // Required
	Runner     core.RunnerClient  // Required
	Callback   CallbackConfig     // Required
	MaxRetries int                // Optional: defaults to MaxAutoRetries
	Logger     *slog.Logger       // Optional
}

// RetryService resubmits failed jobs whose error text looks transient. The
// job is reset to queued before resubmission; if the resubmission itself
// fails the job is marked failed again with the new error and the consumed
// retry is not refunded.
type RetryService struct {
	jobs       core.JobRepository
	runner     core.RunnerClient
	callback   CallbackConfig
	maxRetries int
	logger     *slog.Logger
}

// NewRetryService constructs a RetryService.
func NewRetryService(opts RetryServiceOptions) (*RetryService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("RunnerClient is required")
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = MaxAutoRetries
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "retry_service")
	}

	return &RetryService{
		jobs:       opts.Jobs,
		runner:     opts.Runner,
		callback:   opts.Callback,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// MaybeRetry resubmits the job when it is eligible: failed status, retry
// budget left, and a transient-looking error. Returns whether a resubmission
// was attempted. Callers treat this as best-effort and must not fail their
// own request on a retry error.
func (s *RetryService) MaybeRetry(ctx context.Context, job *model.Job) (bool, error) {
	if job == nil || job.Status != model.JobStatusFailed {
		return false, nil
	}
	if job.RetryCount >= s.maxRetries {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "retry budget exhausted",
				"job_id", job.JobID, "retry_count", job.RetryCount)
		}
		return false, nil
	}
	if !IsRetryableError(job.ErrorMessage) {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "error is not retryable",
				"job_id", job.JobID, "error", job.ErrorMessage)
		}
		return false, nil
	}

	reset, err := s.jobs.ResetForRetry(ctx, job.JobID)
	if err != nil {
		return false, err
	}

	newID, err := s.runner.Submit(ctx, core.RunnerSubmission{
		Input: model.GenerationInput{
			PositivePrompt: reset.Prompt,
			NegativePrompt: reset.NegativePrompt,
			Width:          reset.Width,
			Height:         reset.Height,
			Seed:           reset.Seed,
			Steps:          reset.Steps,
			Cfg:            reset.Cfg,
			NumFrames:      reset.NumFrames,
		},
		WebhookURL: s.callback.URL(),
	})
	if err != nil {
		// The retry was consumed; record the new failure.
		msg := err.Error()
		if _, updErr := s.jobs.UpdateByJobID(ctx, reset.JobID, model.JobStatusUpdate{
			Status:       model.JobStatusFailed,
			ErrorMessage: &msg,
		}); updErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to record resubmission failure",
				"job_id", reset.JobID, "error", updErr)
		}
		return false, err
	}

	if newID != reset.JobID {
		if err := s.jobs.ReplaceJobID(ctx, reset.JobID, newID); err != nil {
			// Webhooks for the new runner job will not find this record.
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "failed to rebind job to new runner id",
					"old_job_id", reset.JobID, "new_job_id", newID, "error", err)
			}
			return true, err
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job resubmitted",
			"job_id", newID, "retry_count", reset.RetryCount)
	}
	return true, nil
}
