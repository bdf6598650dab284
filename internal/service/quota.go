package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openvid/openvid/internal/core"
	"github.com/openvid/openvid/internal/data"
	"github.com/openvid/openvid/internal/domain/model"
)

// QuotaServiceOptions groups dependencies for QuotaService.
type QuotaServiceOptions struct {
	Repo         core.UserQuotaRepository // Required
	LimitSeconds int                      // Required: monthly usage ceiling
	// CustomRangeStart/End optionally define a promotional window with its
	// own reset rule. Both must be set together; zero values disable it.
	CustomRangeStart time.Time
	CustomRangeEnd   time.Time
	TimeProvider     data.TimeProvider // Optional: defaults to system clock
	Logger           *slog.Logger      // Optional
}

// QuotaService is the monthly usage-seconds ledger. Usage resets lazily on
// the first call after a boundary crossing: either a new UTC calendar month,
// or entry into the configured custom window.
type QuotaService struct {
	repo         core.UserQuotaRepository
	limitSeconds int
	rangeStart   time.Time
	rangeEnd     time.Time
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// AdmissionDecision is the result of a CheckAndReserve call.
type AdmissionDecision struct {
	Allowed          bool
	RemainingSeconds int
}

// NewQuotaService constructs a QuotaService.
func NewQuotaService(opts QuotaServiceOptions) (*QuotaService, error) {
	if opts.Repo == nil {
		return nil, errors.New("UserQuotaRepository is required")
	}
	if opts.LimitSeconds <= 0 {
		return nil, errors.New("LimitSeconds must be positive")
	}
	if opts.CustomRangeStart.IsZero() != opts.CustomRangeEnd.IsZero() {
		return nil, errors.New("custom quota range requires both start and end")
	}
	if !opts.CustomRangeStart.IsZero() && !opts.CustomRangeEnd.After(opts.CustomRangeStart) {
		return nil, errors.New("custom quota range end must be after start")
	}

	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "quota_service")
	}

	return &QuotaService{
		repo:         opts.Repo,
		limitSeconds: opts.LimitSeconds,
		rangeStart:   opts.CustomRangeStart,
		rangeEnd:     opts.CustomRangeEnd,
		timeProvider: tp,
		logger:       logger,
	}, nil
}

// GetQuota returns the user's current usage against the limit, applying a
// pending reset first. Propagates NotFound for unknown users.
func (s *QuotaService) GetQuota(ctx context.Context, userID string) (*model.QuotaStatus, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	used := rec.MonthlyUsageSeconds
	now := s.timeProvider.Now()
	if s.shouldReset(rec.MonthlyUsageLastReset, now) {
		if err := s.reset(ctx, userID, now); err != nil {
			return nil, err
		}
		used = 0
	}

	remaining := s.limitSeconds - used
	if remaining < 0 {
		remaining = 0
	}
	return &model.QuotaStatus{
		UsedSeconds:      used,
		LimitSeconds:     s.limitSeconds,
		RemainingSeconds: remaining,
	}, nil
}

// CheckAndReserve decides whether a request of the given duration fits in the
// user's remaining quota. When a reset boundary has been crossed the usage is
// zeroed and the request admitted without comparing against the limit.
func (s *QuotaService) CheckAndReserve(
	ctx context.Context,
	userID string,
	requestedSeconds int,
) (AdmissionDecision, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		return AdmissionDecision{}, err
	}

	now := s.timeProvider.Now()
	if s.shouldReset(rec.MonthlyUsageLastReset, now) {
		if err := s.reset(ctx, userID, now); err != nil {
			return AdmissionDecision{}, err
		}
		return AdmissionDecision{Allowed: true, RemainingSeconds: s.limitSeconds}, nil
	}

	remaining := s.limitSeconds - rec.MonthlyUsageSeconds
	if remaining < 0 {
		remaining = 0
	}
	allowed := rec.MonthlyUsageSeconds+requestedSeconds <= s.limitSeconds
	return AdmissionDecision{Allowed: allowed, RemainingSeconds: remaining}, nil
}

// Increment adds consumed seconds to the user's ledger. Fails loudly when the
// user record does not exist.
func (s *QuotaService) Increment(ctx context.Context, userID string, seconds int) error {
	if seconds <= 0 {
		return nil
	}
	if err := s.repo.AddUsage(ctx, userID, seconds); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "usage incremented", "user_id", userID, "seconds", seconds)
	}
	return nil
}

func (s *QuotaService) reset(ctx context.Context, userID string, now time.Time) error {
	if err := s.repo.ResetUsage(ctx, userID, now); err != nil {
		return fmt.Errorf("reset usage: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "monthly usage reset", "user_id", userID)
	}
	return nil
}

// shouldReset reports whether the last reset predates the current quota
// period. Inside the custom window the usage resets exactly once, on the
// first call after the window opened; outside it, the UTC calendar month
// rule applies.
func (s *QuotaService) shouldReset(lastReset, now time.Time) bool {
	if s.inCustomRange(now) {
		return lastReset.Before(s.rangeStart)
	}
	last := lastReset.UTC()
	cur := now.UTC()
	return last.Year() != cur.Year() || last.Month() != cur.Month()
}

func (s *QuotaService) inCustomRange(now time.Time) bool {
	if s.rangeStart.IsZero() {
		return false
	}
	return !now.Before(s.rangeStart) && now.Before(s.rangeEnd)
}
