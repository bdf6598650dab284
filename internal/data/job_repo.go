package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openvid/openvid/internal/domain/model"
	apperrors "github.com/openvid/openvid/internal/errors"
)

// JobRepoConfig holds optional dependencies for JobRepo.
type JobRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for generation job records.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a JobRepo over the given database connection.
func NewJobRepo(db *sql.DB, cfg JobRepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &JobRepo{DB: db, timeProvider: tp, logger: cfg.Logger}
}

const jobColumns = `
  id,
  job_id,
  user_id,
  prompt,
  negative_prompt,
  model_name,
  width,
  height,
  steps,
  cfg,
  num_frames,
  seed,
  status,
  result_url,
  error_message,
  retry_count,
  created_at,
  updated_at
`

// Create inserts a new job record and returns the stored row.
func (r *JobRepo) Create(ctx context.Context, job *model.Job) (*model.Job, error) {
	if job == nil {
		return nil, apperrors.Validation("job is required")
	}
	if job.JobID == "" {
		return nil, apperrors.Validation("runner job id is required")
	}
	if !job.Status.Valid() {
		return nil, apperrors.Validationf("invalid job status %q", job.Status)
	}

	id := job.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := r.timeProvider.Now()

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO jobs (
			id, job_id, user_id, prompt, negative_prompt, model_name,
			width, height, steps, cfg, num_frames, seed,
			status, result_url, error_message, retry_count, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), NULLIF($15, ''), $16, $17, $17)
		RETURNING `+jobColumns,
		id, job.JobID, job.UserID, job.Prompt, job.NegativePrompt, job.ModelName,
		job.Width, job.Height, job.Steps, job.Cfg, job.NumFrames, job.Seed,
		job.Status, job.ResultURL, job.ErrorMessage, job.RetryCount, now,
	)

	created, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", apperrors.MapDBError(err))
	}
	return created, nil
}

// FindByJobID returns the job with the given runner job ID, or NotFound.
func (r *JobRepo) FindByJobID(ctx context.Context, jobID string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = $1`, jobID)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("find job %s: %w", jobID, apperrors.MapDBError(err))
	}
	return job, nil
}

// UpdateByJobID applies a partial status update keyed by the runner job ID.
// Nil pointer fields in the update leave the stored value untouched
// (COALESCE), so replayed callbacks cannot blank out earlier results.
func (r *JobRepo) UpdateByJobID(
	ctx context.Context,
	jobID string,
	upd model.JobStatusUpdate,
) (*model.Job, error) {
	if !upd.Status.Valid() {
		return nil, apperrors.Validationf("invalid job status %q", upd.Status)
	}

	row := r.DB.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = $2,
		    result_url = COALESCE($3, result_url),
		    error_message = COALESCE($4, error_message),
		    updated_at = $5
		WHERE job_id = $1
		RETURNING `+jobColumns,
		jobID, upd.Status, upd.ResultURL, upd.ErrorMessage, r.timeProvider.Now(),
	)

	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", jobID, apperrors.MapDBError(err))
	}
	return job, nil
}

// ResetForRetry moves a failed job back to queued in a single statement:
// error cleared, retry_count incremented, updated_at refreshed.
func (r *JobRepo) ResetForRetry(ctx context.Context, jobID string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = $2,
		    error_message = NULL,
		    retry_count = retry_count + 1,
		    updated_at = $3
		WHERE job_id = $1
		RETURNING `+jobColumns,
		jobID, model.JobStatusQueued, r.timeProvider.Now(),
	)

	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("reset job %s for retry: %w", jobID, apperrors.MapDBError(err))
	}
	return job, nil
}

// ReplaceJobID rebinds a record to the new runner job ID a resubmission
// produced, so later webhook deliveries find the row.
func (r *JobRepo) ReplaceJobID(ctx context.Context, oldJobID, newJobID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET job_id = $2, updated_at = $3 WHERE job_id = $1`,
		oldJobID, newJobID, r.timeProvider.Now(),
	)
	if err != nil {
		return fmt.Errorf("replace job id %s: %w", oldJobID, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace job id %s: %w", oldJobID, apperrors.MapDBError(err))
	}
	if n == 0 {
		return apperrors.NotFoundf("job %s not found", oldJobID)
	}
	return nil
}

// ListByOwner returns the user's jobs newest first. A non-nil since restricts
// the result to rows updated strictly after it; a future since simply yields
// an empty slice.
func (r *JobRepo) ListByOwner(
	ctx context.Context,
	userID string,
	since *time.Time,
) ([]*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE user_id = $1`
	args := []any{userID}
	if since != nil {
		query += ` AND updated_at > $2`
		args = append(args, *since)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs for %s: %w", userID, apperrors.MapDBError(err))
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && r.logger != nil {
			r.logger.ErrorContext(ctx, "close job rows failed", "error", cerr)
		}
	}()

	jobs := []*model.Job{}
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job row: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", apperrors.MapDBError(err))
	}
	return jobs, nil
}

// DeleteByOwner deletes the jobs matching both the given runner job IDs and
// the owning user, returning the number of rows removed. IDs belonging to
// other users are silently skipped.
func (r *JobRepo) DeleteByOwner(ctx context.Context, userID string, jobIDs []string) (int64, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM jobs WHERE user_id = $1 AND job_id = ANY($2)`,
		userID, jobIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("delete jobs for %s: %w", userID, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete jobs for %s: %w", userID, apperrors.MapDBError(err))
	}
	return n, nil
}

// CountQueuedByOwner counts the user's jobs currently sitting in the queue.
// Jobs that moved on to processing no longer gate admission.
func (r *JobRepo) CountQueuedByOwner(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM jobs WHERE user_id = $1 AND status = $2`,
		userID, model.JobStatusQueued,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count queued jobs for %s: %w", userID, apperrors.MapDBError(err))
	}
	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job          model.Job
		resultURL    sql.NullString
		errorMessage sql.NullString
	)
	err := row.Scan(
		&job.ID,
		&job.JobID,
		&job.UserID,
		&job.Prompt,
		&job.NegativePrompt,
		&job.ModelName,
		&job.Width,
		&job.Height,
		&job.Steps,
		&job.Cfg,
		&job.NumFrames,
		&job.Seed,
		&job.Status,
		&resultURL,
		&errorMessage,
		&job.RetryCount,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.ResultURL = resultURL.String
	job.ErrorMessage = errorMessage.String
	return &job, nil
}
