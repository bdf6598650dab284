package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openvid/openvid/internal/core"
)

// MaxConcurrentJobs is the system-wide ceiling on a user's queued jobs. Jobs
// already picked up by a worker (processing) do not count against it; only
// the queue depth is gated.
const MaxConcurrentJobs = 3

// ConcurrencyGate counts a user's queued jobs against the fixed ceiling.
type ConcurrencyGate struct {
	jobs   core.JobRepository
	max    int
	logger *slog.Logger
}

// ConcurrencyDecision is the result of a gate check.
type ConcurrencyDecision struct {
	Count   int
	Allowed bool
	Reason  string
}

// NewConcurrencyGate constructs a gate over the job repository.
func NewConcurrencyGate(jobs core.JobRepository, logger *slog.Logger) *ConcurrencyGate {
	if logger != nil {
		logger = logger.With("component", "concurrency_gate")
	}
	return &ConcurrencyGate{jobs: jobs, max: MaxConcurrentJobs, logger: logger}
}

// Check reports whether the user may queue another job.
func (g *ConcurrencyGate) Check(ctx context.Context, userID string) (ConcurrencyDecision, error) {
	count, err := g.jobs.CountQueuedByOwner(ctx, userID)
	if err != nil {
		return ConcurrencyDecision{}, err
	}

	decision := ConcurrencyDecision{Count: count, Allowed: count < g.max}
	if !decision.Allowed {
		decision.Reason = fmt.Sprintf("you already have %d jobs queued; the maximum is %d", count, g.max)
		if g.logger != nil {
			g.logger.DebugContext(ctx, "concurrency ceiling reached", "user_id", userID, "queued", count)
		}
	}
	return decision, nil
}
