package service

import (
	"context"
	"sync"
	"time"

	"github.com/openvid/openvid/internal/core"
	"github.com/openvid/openvid/internal/domain/model"
	apperrors "github.com/openvid/openvid/internal/errors"
)

// stubJobRepo is an in-memory core.JobRepository keyed by runner job ID.
type stubJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job

	createErr error
	updateErr error
	countErr  error

	now time.Time
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{
		jobs: make(map[string]*model.Job),
		now:  time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (r *stubJobRepo) put(job *model.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.JobID] = &cp
}

func (r *stubJobRepo) get(jobID string) *model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[jobID]; ok {
		cp := *j
		return &cp
	}
	return nil
}

func (r *stubJobRepo) Create(_ context.Context, job *model.Job) (*model.Job, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	cp := *job
	cp.ID = "row-" + job.JobID
	cp.CreatedAt = r.now
	cp.UpdatedAt = r.now
	r.mu.Lock()
	r.jobs[cp.JobID] = &cp
	r.mu.Unlock()
	out := cp
	return &out, nil
}

func (r *stubJobRepo) FindByJobID(_ context.Context, jobID string) (*model.Job, error) {
	if j := r.get(jobID); j != nil {
		return j, nil
	}
	return nil, apperrors.NotFoundf("job %s not found", jobID)
}

func (r *stubJobRepo) UpdateByJobID(
	_ context.Context,
	jobID string,
	upd model.JobStatusUpdate,
) (*model.Job, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	j.Status = upd.Status
	if upd.ResultURL != nil {
		j.ResultURL = *upd.ResultURL
	}
	if upd.ErrorMessage != nil {
		j.ErrorMessage = *upd.ErrorMessage
	}
	j.UpdatedAt = r.now
	cp := *j
	return &cp, nil
}

func (r *stubJobRepo) ResetForRetry(_ context.Context, jobID string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	j.Status = model.JobStatusQueued
	j.ErrorMessage = ""
	j.RetryCount++
	j.UpdatedAt = r.now
	cp := *j
	return &cp, nil
}

func (r *stubJobRepo) ReplaceJobID(_ context.Context, oldJobID, newJobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[oldJobID]
	if !ok {
		return apperrors.NotFoundf("job %s not found", oldJobID)
	}
	delete(r.jobs, oldJobID)
	j.JobID = newJobID
	j.UpdatedAt = r.now
	r.jobs[newJobID] = j
	return nil
}

func (r *stubJobRepo) ListByOwner(
	_ context.Context,
	userID string,
	since *time.Time,
) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Job{}
	for _, j := range r.jobs {
		if j.UserID != userID {
			continue
		}
		if since != nil && !j.UpdatedAt.After(*since) {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (r *stubJobRepo) DeleteByOwner(_ context.Context, userID string, jobIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range jobIDs {
		if j, ok := r.jobs[id]; ok && j.UserID == userID {
			delete(r.jobs, id)
			n++
		}
	}
	return n, nil
}

func (r *stubJobRepo) CountQueuedByOwner(_ context.Context, userID string) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, j := range r.jobs {
		if j.UserID == userID && j.Status == model.JobStatusQueued {
			count++
		}
	}
	return count, nil
}

var _ core.JobRepository = (*stubJobRepo)(nil)

// stubQuotaRepo is an in-memory core.UserQuotaRepository.
type stubQuotaRepo struct {
	mu      sync.Mutex
	records map[string]*model.UserQuota

	resetErr error
	addErr   error

	resetCalls int
	addCalls   int
}

func newStubQuotaRepo() *stubQuotaRepo {
	return &stubQuotaRepo{records: make(map[string]*model.UserQuota)}
}

func (r *stubQuotaRepo) seed(userID string, used int, lastReset time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[userID] = &model.UserQuota{
		ID:                    userID,
		MonthlyUsageSeconds:   used,
		MonthlyUsageLastReset: lastReset,
	}
}

func (r *stubQuotaRepo) Get(_ context.Context, userID string) (*model.UserQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, apperrors.NotFoundf("user %s not found", userID)
	}
	cp := *rec
	return &cp, nil
}

func (r *stubQuotaRepo) ResetUsage(_ context.Context, userID string, at time.Time) error {
	if r.resetErr != nil {
		return r.resetErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return apperrors.NotFoundf("user %s not found", userID)
	}
	r.resetCalls++
	rec.MonthlyUsageSeconds = 0
	rec.MonthlyUsageLastReset = at
	return nil
}

func (r *stubQuotaRepo) AddUsage(_ context.Context, userID string, seconds int) error {
	if r.addErr != nil {
		return r.addErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return apperrors.NotFoundf("user %s not found", userID)
	}
	r.addCalls++
	rec.MonthlyUsageSeconds += seconds
	return nil
}

var _ core.UserQuotaRepository = (*stubQuotaRepo)(nil)

// stubLimiter is a canned core.RateLimiter.
type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (l *stubLimiter) Allow(context.Context, string) (bool, error) {
	l.calls++
	return l.allowed, l.err
}

var _ core.RateLimiter = (*stubLimiter)(nil)

// stubRunner is a canned core.RunnerClient recording submissions.
type stubRunner struct {
	mu          sync.Mutex
	submissions []core.RunnerSubmission
	ids         []string
	submitErr   error
}

func (r *stubRunner) Submit(_ context.Context, sub core.RunnerSubmission) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, sub)
	if r.submitErr != nil {
		return "", r.submitErr
	}
	if len(r.ids) > 0 {
		id := r.ids[0]
		r.ids = r.ids[1:]
		return id, nil
	}
	return "job-1", nil
}

func (r *stubRunner) Status(context.Context, string) (*model.RunnerJobState, error) {
	return nil, apperrors.Internal("not implemented in stub")
}

func (r *stubRunner) Health(context.Context) (*model.RunnerHealth, error) {
	return nil, apperrors.Internal("not implemented in stub")
}

func (r *stubRunner) submitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.submissions)
}

var _ core.RunnerClient = (*stubRunner)(nil)
