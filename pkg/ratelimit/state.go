// Package ratelimit tracks the SWAPI request budget and gates requests.
//
// SWAPI allows a fixed number of requests per client per day. The counter
// lives in Redis so every process sharing an egress IP draws from the same
// budget.
package ratelimit

import (
	"time"
)

// Redis keys for budget state storage.
const (
	RedisKeyRequestsUsed = "swapi:budget:requests_used"
)

// Budget defaults.
const (
	// DefaultDailyLimit is the number of requests SWAPI grants per day.
	DefaultDailyLimit = 10000

	// DefaultWindow is the length of a budget window.
	DefaultWindow = 24 * time.Hour

	// WarningFraction applies throttling when less than this share of the
	// budget remains.
	WarningFraction = 0.10

	// HealthyFraction marks the budget healthy when at least this share remains.
	HealthyFraction = 0.50
)

// BudgetState represents the current request budget.
type BudgetState struct {
	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Used is the number of requests recorded in the current window.
	Used int `json:"used"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`

	// IsHealthy is true when Remaining is at least HealthyFraction of Limit.
	IsHealthy bool `json:"is_healthy"`
}

// Remaining returns the requests left in the window, never negative.
func (s *BudgetState) Remaining() int {
	if r := s.Limit - s.Used; r > 0 {
		return r
	}
	return 0
}

// NeedsCriticalBlock returns true if the budget is exhausted.
func (s *BudgetState) NeedsCriticalBlock() bool {
	return s.Remaining() <= 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *BudgetState) NeedsThrottling() bool {
	return float64(s.Remaining()) < float64(s.Limit)*WarningFraction && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *BudgetState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on the remaining budget.
func (s *BudgetState) UpdateHealth() {
	s.IsHealthy = float64(s.Remaining()) >= float64(s.Limit)*HealthyFraction
}
