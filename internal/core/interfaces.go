// Package core defines the contracts between the service layer and its
// collaborators (ports in hexagonal architecture). Services depend on these
// interfaces, never on concrete repositories or clients.
package core

import (
	"context"
	"time"

	"github.com/openvid/openvid/internal/domain/model"
)

// JobRepository defines the interface for job record persistence. Lookups are
// keyed by the runner-assigned external job ID, which is unique and indexed.
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) (*model.Job, error)
	FindByJobID(ctx context.Context, jobID string) (*model.Job, error)
	// UpdateByJobID applies a partial status update; fields left nil in the
	// update are not touched. Returns NotFound when no row matches.
	UpdateByJobID(ctx context.Context, jobID string, upd model.JobStatusUpdate) (*model.Job, error)
	// ResetForRetry atomically moves a failed job back to queued: clears the
	// error message, increments retry_count, and refreshes updated_at.
	ResetForRetry(ctx context.Context, jobID string) (*model.Job, error)
	// ReplaceJobID rebinds a record to a new runner job ID after resubmission.
	ReplaceJobID(ctx context.Context, oldJobID, newJobID string) error
	// ListByOwner returns the user's jobs newest first. A non-nil since
	// restricts the result to rows with updated_at strictly after it.
	ListByOwner(ctx context.Context, userID string, since *time.Time) ([]*model.Job, error)
	DeleteByOwner(ctx context.Context, userID string, jobIDs []string) (int64, error)
	CountQueuedByOwner(ctx context.Context, userID string) (int, error)
}

// UserQuotaRepository defines the interface for per-user quota records.
// Records are created at signup by an external system; Get returns NotFound
// for unknown users and callers propagate that rather than defaulting.
type UserQuotaRepository interface {
	Get(ctx context.Context, userID string) (*model.UserQuota, error)
	ResetUsage(ctx context.Context, userID string, at time.Time) error
	AddUsage(ctx context.Context, userID string, seconds int) error
}

// RateLimiter is the sliding-window admission limiter keyed by user ID.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// RunnerSubmission is the payload handed to the external job runner.
type RunnerSubmission struct {
	Input      model.GenerationInput
	WebhookURL string
}

// RunnerClient is the external asynchronous GPU job runner. Submit returns
// the runner-assigned opaque job identifier; completion is reported later via
// webhook, with Status available for on-demand queries.
type RunnerClient interface {
	Submit(ctx context.Context, sub RunnerSubmission) (string, error)
	Status(ctx context.Context, jobID string) (*model.RunnerJobState, error)
	Health(ctx context.Context) (*model.RunnerHealth, error)
}
