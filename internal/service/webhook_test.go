package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvid/openvid/internal/data"
	"github.com/openvid/openvid/internal/domain/model"
	apperrors "github.com/openvid/openvid/internal/errors"
)

const webhookSecret = "hook-secret"

type webhookFixture struct {
	svc       *WebhookService
	jobs      *stubJobRepo
	quotaRepo *stubQuotaRepo
	runner    *stubRunner
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	jobs := newStubJobRepo()
	quotaRepo := newStubQuotaRepo()
	quotaRepo.seed("user-1", 0, now)
	runner := &stubRunner{}

	quota, err := NewQuotaService(QuotaServiceOptions{
		Repo:         quotaRepo,
		LimitSeconds: 100,
		TimeProvider: data.NewFixedTimeProvider(now),
	})
	require.NoError(t, err)

	retry, err := NewRetryService(RetryServiceOptions{
		Jobs:     jobs,
		Runner:   runner,
		Callback: CallbackConfig{BaseURL: "https://openvid.example.com", Token: webhookSecret},
	})
	require.NoError(t, err)

	svc, err := NewWebhookService(WebhookServiceOptions{
		Jobs:  jobs,
		Quota: quota,
		Retry: retry,
		Token: webhookSecret,
	})
	require.NoError(t, err)

	return &webhookFixture{svc: svc, jobs: jobs, quotaRepo: quotaRepo, runner: runner}
}

func (f *webhookFixture) seedJob(status model.JobStatus) {
	f.jobs.put(&model.Job{
		JobID:     "rp-1",
		UserID:    "user-1",
		Prompt:    "a red fox running through snow",
		NumFrames: 81, // 6 usage seconds at the output frame rate
		Status:    status,
	})
}

func TestWebhookService_Auth(t *testing.T) {
	body := []byte(`{"id":"rp-1","status":"COMPLETED"}`)

	t.Run("wrong token is unauthorized and leaves the job untouched", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)

		_, err := f.svc.HandleCallback(context.Background(), "wrong", body)
		assert.True(t, apperrors.IsUnauthorized(err))
		assert.Equal(t, model.JobStatusProcessing, f.jobs.get("rp-1").Status)
	})

	t.Run("empty presented token is unauthorized", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)

		_, err := f.svc.HandleCallback(context.Background(), "", body)
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("missing configured secret fails closed", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.svc.token = ""
		f.seedJob(model.JobStatusProcessing)

		_, err := f.svc.HandleCallback(context.Background(), webhookSecret, body)
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}

func TestWebhookService_Payload(t *testing.T) {
	t.Run("malformed body is an internal error", func(t *testing.T) {
		f := newWebhookFixture(t)

		_, err := f.svc.HandleCallback(context.Background(), webhookSecret, []byte(`{not json`))
		assert.True(t, apperrors.IsInternal(err))
	})

	t.Run("missing job id is a validation error", func(t *testing.T) {
		f := newWebhookFixture(t)

		_, err := f.svc.HandleCallback(context.Background(), webhookSecret, []byte(`{"status":"COMPLETED"}`))
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unrecognized status is a validation error and leaves the job untouched", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)

		_, err := f.svc.HandleCallback(context.Background(), webhookSecret,
			[]byte(`{"id":"rp-1","status":"EXPLODED"}`))
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, model.JobStatusProcessing, f.jobs.get("rp-1").Status)
	})

	t.Run("unknown job id yields the not-found message", func(t *testing.T) {
		f := newWebhookFixture(t)

		_, err := f.svc.HandleCallback(context.Background(), webhookSecret,
			[]byte(`{"id":"rp-missing","status":"COMPLETED"}`))
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Equal(t, "Video not found with jobId: rp-missing", err.Error())
	})
}

func TestWebhookService_Transitions(t *testing.T) {
	t.Run("progress update", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusQueued)

		job, err := f.svc.HandleCallback(context.Background(), webhookSecret,
			[]byte(`{"id":"rp-1","status":"IN_PROGRESS"}`))
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusProcessing, job.Status)
		assert.Zero(t, f.quotaRepo.addCalls)
	})

	t.Run("completion stores the result and accounts usage", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)

		job, err := f.svc.HandleCallback(context.Background(), webhookSecret,
			[]byte(`{"id":"rp-1","status":"COMPLETED","output":{"result":"https://cdn.example.com/v.mp4"}}`))
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, job.Status)
		assert.Equal(t, "https://cdn.example.com/v.mp4", job.ResultURL)

		rec, err := f.quotaRepo.Get(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, 6, rec.MonthlyUsageSeconds)
	})

	t.Run("replayed completion is idempotent", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)
		body := []byte(`{"id":"rp-1","status":"COMPLETED","output":{"result":"https://cdn.example.com/v.mp4"}}`)

		for i := 0; i < 3; i++ {
			job, err := f.svc.HandleCallback(context.Background(), webhookSecret, body)
			require.NoError(t, err, "replay %d must be acknowledged", i)
			assert.Equal(t, model.JobStatusCompleted, job.Status)
		}
		assert.Equal(t, 1, f.quotaRepo.addCalls, "usage is charged once per job, not per delivery")
	})

	t.Run("result is kept when a later callback omits it", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)

		_, err := f.svc.HandleCallback(context.Background(), webhookSecret,
			[]byte(`{"id":"rp-1","status":"COMPLETED","output":{"result":"https://cdn.example.com/v.mp4"}}`))
		require.NoError(t, err)

		job, err := f.svc.HandleCallback(context.Background(), webhookSecret,
			[]byte(`{"id":"rp-1","status":"COMPLETED"}`))
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/v.mp4", job.ResultURL)
	})

	t.Run("case-insensitive status vocabulary", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusQueued)

		job, err := f.svc.HandleCallback(context.Background(), webhookSecret,
			[]byte(`{"id":"rp-1","status":"done"}`))
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, job.Status)
	})
}

func TestWebhookService_Failures(t *testing.T) {
	failedBody := func(msg string) []byte {
		return []byte(fmt.Sprintf(`{"id":"rp-1","status":"FAILED","error":%q}`, msg))
	}

	t.Run("retryable failure is resubmitted", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)
		f.runner.ids = []string{"rp-2"}

		job, err := f.svc.HandleCallback(context.Background(), webhookSecret, failedBody("worker timeout"))
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, job.Status)
		assert.Equal(t, "worker timeout", job.ErrorMessage)

		assert.Equal(t, 1, f.runner.submitCount())
		rebound := f.jobs.get("rp-2")
		require.NotNil(t, rebound)
		assert.Equal(t, model.JobStatusQueued, rebound.Status)
		assert.Equal(t, 1, rebound.RetryCount)
	})

	t.Run("terminal failure is not resubmitted", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)

		job, err := f.svc.HandleCallback(context.Background(), webhookSecret, failedBody("invalid prompt"))
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, job.Status)
		assert.Zero(t, f.runner.submitCount())
		assert.Zero(t, f.quotaRepo.addCalls, "failed jobs consume no quota")
	})

	t.Run("resubmission error does not fail the callback", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)
		f.runner.submitErr = apperrors.Upstream(503, "server error")

		job, err := f.svc.HandleCallback(context.Background(), webhookSecret, failedBody("worker timeout"))
		require.NoError(t, err, "the callback is acknowledged even when the retry fails")
		assert.Equal(t, model.JobStatusFailed, job.Status)
	})

	t.Run("structured runner error is captured as text", func(t *testing.T) {
		f := newWebhookFixture(t)
		f.seedJob(model.JobStatusProcessing)

		job, err := f.svc.HandleCallback(context.Background(), webhookSecret,
			[]byte(`{"id":"rp-1","status":"FAILED","error":{"kind":"oom","detail":"CUDA out of memory"}}`))
		require.NoError(t, err)
		assert.Contains(t, job.ErrorMessage, "CUDA out of memory")
	})
}
