package httpx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openvid/openvid/internal/core"
	"github.com/openvid/openvid/internal/data"
	"github.com/openvid/openvid/internal/domain/model"
	apperrors "github.com/openvid/openvid/internal/errors"
	"github.com/openvid/openvid/internal/service"
)

const (
	testUserID       = "user-1"
	testWebhookToken = "hook-secret"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// memJobRepo is a minimal in-memory core.JobRepository for handler tests.
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]*model.Job)}
}

func (r *memJobRepo) put(job *model.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.JobID] = &cp
}

func (r *memJobRepo) Create(_ context.Context, job *model.Job) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	cp.ID = "row-" + job.JobID
	cp.CreatedAt = testNow
	cp.UpdatedAt = testNow
	r.jobs[cp.JobID] = &cp
	out := cp
	return &out, nil
}

func (r *memJobRepo) FindByJobID(_ context.Context, jobID string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[jobID]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, apperrors.NotFoundf("job %s not found", jobID)
}

func (r *memJobRepo) UpdateByJobID(
	_ context.Context,
	jobID string,
	upd model.JobStatusUpdate,
) (*model.Job, error) {
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
	j.UpdatedAt = testNow
	cp := *j
	return &cp, nil
}

func (r *memJobRepo) ResetForRetry(_ context.Context, jobID string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	j.Status = model.JobStatusQueued
	j.ErrorMessage = ""
	j.RetryCount++
	cp := *j
	return &cp, nil
}

func (r *memJobRepo) ReplaceJobID(_ context.Context, oldJobID, newJobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[oldJobID]
	if !ok {
		return apperrors.NotFoundf("job %s not found", oldJobID)
	}
	delete(r.jobs, oldJobID)
	j.JobID = newJobID
	r.jobs[newJobID] = j
	return nil
}

func (r *memJobRepo) ListByOwner(
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

func (r *memJobRepo) DeleteByOwner(_ context.Context, userID string, jobIDs []string) (int64, error) {
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

func (r *memJobRepo) CountQueuedByOwner(_ context.Context, userID string) (int, error) {
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

var _ core.JobRepository = (*memJobRepo)(nil)

// memQuotaRepo is a minimal in-memory core.UserQuotaRepository.
type memQuotaRepo struct {
	mu      sync.Mutex
	records map[string]*model.UserQuota
}

func newMemQuotaRepo() *memQuotaRepo {
	return &memQuotaRepo{records: make(map[string]*model.UserQuota)}
}

func (r *memQuotaRepo) seed(userID string, used int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[userID] = &model.UserQuota{
		ID:                    userID,
		MonthlyUsageSeconds:   used,
		MonthlyUsageLastReset: testNow,
	}
}

func (r *memQuotaRepo) Get(_ context.Context, userID string) (*model.UserQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, apperrors.NotFoundf("user %s not found", userID)
	}
	cp := *rec
	return &cp, nil
}

func (r *memQuotaRepo) ResetUsage(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return apperrors.NotFoundf("user %s not found", userID)
	}
	rec.MonthlyUsageSeconds = 0
	rec.MonthlyUsageLastReset = at
	return nil
}

func (r *memQuotaRepo) AddUsage(_ context.Context, userID string, seconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok {
		return apperrors.NotFoundf("user %s not found", userID)
	}
	rec.MonthlyUsageSeconds += seconds
	return nil
}

var _ core.UserQuotaRepository = (*memQuotaRepo)(nil)

// allowAllLimiter always admits.
type allowAllLimiter struct{}

func (allowAllLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// denyAllLimiter always rejects.
type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, string) (bool, error) { return false, nil }

// fakeRunner is a canned core.RunnerClient.
type fakeRunner struct {
	mu        sync.Mutex
	nextID    string
	submitErr error
	health    *model.RunnerHealth
	healthErr error
	submits   int
}

func (r *fakeRunner) Submit(context.Context, core.RunnerSubmission) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submits++
	if r.submitErr != nil {
		return "", r.submitErr
	}
	if r.nextID == "" {
		return "rp-generated", nil
	}
	return r.nextID, nil
}

func (r *fakeRunner) Status(context.Context, string) (*model.RunnerJobState, error) {
	return nil, apperrors.Internal("not implemented in fake")
}

func (r *fakeRunner) Health(context.Context) (*model.RunnerHealth, error) {
	if r.healthErr != nil {
		return nil, r.healthErr
	}
	if r.health != nil {
		return r.health, nil
	}
	return &model.RunnerHealth{}, nil
}

var _ core.RunnerClient = (*fakeRunner)(nil)

// apiFixture wires the full service graph over in-memory repositories and
// exposes the assembled router.
type apiFixture struct {
	jobs      *memJobRepo
	quotaRepo *memQuotaRepo
	runner    *fakeRunner
	limiter   core.RateLimiter
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		jobs:      newMemJobRepo(),
		quotaRepo: newMemQuotaRepo(),
		runner:    &fakeRunner{},
		limiter:   allowAllLimiter{},
	}
	f.quotaRepo.seed(testUserID, 0)
	return f
}

func (f *apiFixture) router(t *testing.T) *routerUnderTest {
	t.Helper()

	callback := service.CallbackConfig{BaseURL: "https://openvid.example.com", Token: testWebhookToken}

	quota, err := service.NewQuotaService(service.QuotaServiceOptions{
		Repo:         f.quotaRepo,
		LimitSeconds: 100,
		TimeProvider: data.NewFixedTimeProvider(testNow),
	})
	require.NoError(t, err)

	videos, err := service.NewVideoService(service.VideoServiceOptions{
		Jobs:     f.jobs,
		Runner:   f.runner,
		Limiter:  f.limiter,
		Quota:    quota,
		Gate:     service.NewConcurrencyGate(f.jobs, nil),
		Callback: callback,
	})
	require.NoError(t, err)

	retry, err := service.NewRetryService(service.RetryServiceOptions{
		Jobs:     f.jobs,
		Runner:   f.runner,
		Callback: callback,
	})
	require.NoError(t, err)

	webhook, err := service.NewWebhookService(service.WebhookServiceOptions{
		Jobs:  f.jobs,
		Quota: quota,
		Retry: retry,
		Token: testWebhookToken,
	})
	require.NoError(t, err)

	return &routerUnderTest{handler: NewRouter(RouterServices{
		Videos:  videos,
		Quota:   quota,
		Webhook: webhook,
		Runner:  f.runner,
	})}
}
