package model

import "time"

// UserQuota is the per-user monthly usage record. The row is owned by the
// signup flow; this service only reads and adjusts the usage fields.
type UserQuota struct {
	ID                    string    `json:"id"                    db:"id"`
	MonthlyUsageSeconds   int       `json:"monthlyUsageSeconds"   db:"monthly_usage_seconds"`
	MonthlyUsageLastReset time.Time `json:"monthlyUsageLastReset" db:"monthly_usage_last_reset"`
}

// QuotaStatus is the caller-facing quota readout.
type QuotaStatus struct {
	UsedSeconds      int `json:"used"`
	LimitSeconds     int `json:"limit"`
	RemainingSeconds int `json:"remaining"`
}
