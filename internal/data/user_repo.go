package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openvid/openvid/internal/domain/model"
	apperrors "github.com/openvid/openvid/internal/errors"
)

// UserRepo provides database operations for per-user quota records. The rows
// themselves are created by the signup flow; a missing row is reported as
// NotFound, never silently defaulted.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a UserRepo over the given database connection.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// Get returns the quota record for the given user, or NotFound.
func (r *UserRepo) Get(ctx context.Context, userID string) (*model.UserQuota, error) {
	var q model.UserQuota
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, monthly_usage_seconds, monthly_usage_last_reset
		FROM users
		WHERE id = $1`,
		userID,
	).Scan(&q.ID, &q.MonthlyUsageSeconds, &q.MonthlyUsageLastReset)
	if err != nil {
		return nil, fmt.Errorf("get quota for %s: %w", userID, apperrors.MapDBError(err))
	}
	return &q, nil
}

// ResetUsage zeroes the user's usage and stamps the reset time.
func (r *UserRepo) ResetUsage(ctx context.Context, userID string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET monthly_usage_seconds = 0, monthly_usage_last_reset = $2
		WHERE id = $1`,
		userID, at,
	)
	if err != nil {
		return fmt.Errorf("reset usage for %s: %w", userID, apperrors.MapDBError(err))
	}
	return requireRow(res, userID)
}

// AddUsage increments the user's usage-seconds. Fails with NotFound when the
// record does not exist; record creation belongs to signup, not accounting.
func (r *UserRepo) AddUsage(ctx context.Context, userID string, seconds int) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET monthly_usage_seconds = monthly_usage_seconds + $2
		WHERE id = $1`,
		userID, seconds,
	)
	if err != nil {
		return fmt.Errorf("add usage for %s: %w", userID, apperrors.MapDBError(err))
	}
	return requireRow(res, userID)
}

func requireRow(res sql.Result, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", apperrors.MapDBError(err))
	}
	if n == 0 {
		return apperrors.NotFoundf("user %s not found", userID)
	}
	return nil
}
