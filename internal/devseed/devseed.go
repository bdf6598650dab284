// Package devseed populates a development database with demo users and jobs.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openvid/openvid/internal/domain/model"
)

// seedUser is one demo account with optional historical jobs.
type seedUser struct {
	ID          string
	UsedSeconds int
	Jobs        []seedJob
}

type seedJob struct {
	JobID  string
	Prompt string
	Status model.JobStatus
	Result string
}

func seedUsers() []seedUser {
	return []seedUser{
		{
			ID:          "dev-user",
			UsedSeconds: 12,
			Jobs: []seedJob{
				{
					JobID:  "seed-completed-1",
					Prompt: "a lighthouse at dusk, waves crashing",
					Status: model.JobStatusCompleted,
					Result: "https://cdn.example.com/seed/lighthouse.mp4",
				},
				{
					JobID:  "seed-failed-1",
					Prompt: "an astronaut riding a horse on mars",
					Status: model.JobStatusFailed,
				},
			},
		},
		{ID: "dev-user-empty"},
	}
}

// Run inserts demo users and jobs, skipping rows that already exist. It is
// safe to call on every dev startup.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	now := time.Now().UTC()
	seeded := 0

	for _, u := range seedUsers() {
		res, err := db.ExecContext(ctx, `
      INSERT INTO users (id, monthly_usage_seconds, monthly_usage_last_reset)
      VALUES ($1, $2, $3)
      ON CONFLICT (id) DO NOTHING`,
			u.ID, u.UsedSeconds, now)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			seeded++
		}

		for _, j := range u.Jobs {
			if err := seedOneJob(ctx, db, u.ID, j, now); err != nil {
				return err
			}
		}
	}

	if logger != nil {
		logger.InfoContext(ctx, "development seed complete", "new_users", seeded)
	}
	return nil
}

func seedOneJob(ctx context.Context, db *sql.DB, userID string, j seedJob, now time.Time) error {
	errMsg := sql.NullString{}
	if j.Status == model.JobStatusFailed {
		errMsg = sql.NullString{String: "worker timeout", Valid: true}
	}
	result := sql.NullString{String: j.Result, Valid: j.Result != ""}

	_, err := db.ExecContext(ctx, `
    INSERT INTO jobs (
      id, job_id, user_id, prompt, negative_prompt, model_name,
      width, height, steps, cfg, num_frames, seed,
      status, result_url, error_message, retry_count, created_at, updated_at
    )
    VALUES ($1, $2, $3, $4, '', 'wan2.1-t2v', 832, 480, 30, 6.0, 81, 42, $5, $6, $7, 0, $8, $8)
    ON CONFLICT (job_id) DO NOTHING`,
		uuid.NewString(), j.JobID, userID, j.Prompt, string(j.Status), result, errMsg, now)
	if err != nil {
		return fmt.Errorf("seed job %s: %w", j.JobID, err)
	}
	return nil
}
