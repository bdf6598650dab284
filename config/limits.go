package config

import (
	"fmt"
	"time"
)

// LimitsConfig contains quota and rate-limit configuration.
type LimitsConfig struct {
	// MonthlyQuotaSeconds is the per-user monthly generation budget, measured
	// in seconds of output video.
	MonthlyQuotaSeconds int `env:"MONTHLY_QUOTA_SECONDS" envDefault:"300"`

	// RateLimitRequests is how many submissions a user may make per window.
	RateLimitRequests int `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`

	// RateLimitWindow is the sliding window the request count applies to.
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// QuotaRangeStart/End optionally define a custom quota window (RFC 3339)
	// with its own reset rule, e.g. a promotional period. Both must be set
	// together; empty values disable it.
	QuotaRangeStart string `env:"QUOTA_RANGE_START" envDefault:""`
	QuotaRangeEnd   string `env:"QUOTA_RANGE_END"   envDefault:""`
}

// Sanitize applies guardrails to limit configuration values.
func (l *LimitsConfig) Sanitize() {
	if l.MonthlyQuotaSeconds < 1 {
		l.MonthlyQuotaSeconds = 1
	}
	if l.RateLimitRequests < 1 {
		l.RateLimitRequests = 1
	}
	if l.RateLimitWindow <= 0 {
		l.RateLimitWindow = time.Minute
	}
}

// QuotaRange parses the optional custom quota window. Zero times are returned
// when the window is not configured.
func (l *LimitsConfig) QuotaRange() (start, end time.Time, err error) {
	if l.QuotaRangeStart == "" && l.QuotaRangeEnd == "" {
		return time.Time{}, time.Time{}, nil
	}
	if l.QuotaRangeStart == "" || l.QuotaRangeEnd == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("QUOTA_RANGE_START and QUOTA_RANGE_END must be set together")
	}

	start, err = time.Parse(time.RFC3339, l.QuotaRangeStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse QUOTA_RANGE_START: %w", err)
	}
	end, err = time.Parse(time.RFC3339, l.QuotaRangeEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse QUOTA_RANGE_END: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("QUOTA_RANGE_END must be after QUOTA_RANGE_START")
	}
	return start, end, nil
}
