package campaign

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is a user's daily AI dialing control row.
//
// Invariant: once TodaySpend >= DailySpendLimit, or the leads-mode target is met,
// Status is stopped and stays stopped until an explicit Start.
type State struct {
	UserID string `json:"user_id" db:"user_id"`
	Status Status `json:"status" db:"status"`

	ExecutionMode   Mode `json:"execution_mode" db:"execution_mode"`
	TargetLeadCount int  `json:"target_lead_count" db:"target_lead_count"`

	// DailySpendLimit <= 0 means unlimited.
	DailySpendLimit decimal.Decimal `json:"daily_spend_limit" db:"daily_spend_limit"`
	TodaySpend      decimal.Decimal `json:"today_spend" db:"today_spend"`
	CallsMadeToday  int             `json:"calls_made_today" db:"calls_made_today"`

	StopReason StopReason `json:"stop_reason,omitempty" db:"stop_reason"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

type Mode string

const (
	// ModeLeads stops after TargetLeadCount completed sessions.
	ModeLeads Mode = "leads"
	// ModeTime runs until the schedule window closes or a limit is hit.
	ModeTime Mode = "time"
)

type StopReason string

const (
	StopNone          StopReason = ""
	StopSpendLimit    StopReason = "spend_limit"
	StopTargetReached StopReason = "target_reached"
	StopManual        StopReason = "manual"
)

// SpendLimitReached reports whether today's spend has met a positive limit.
func (s State) SpendLimitReached() bool {
	return s.DailySpendLimit.IsPositive() && s.TodaySpend.GreaterThanOrEqual(s.DailySpendLimit)
}

// TargetReached reports whether a leads-mode run has made its target number of calls.
func (s State) TargetReached() bool {
	return s.ExecutionMode == ModeLeads && s.TargetLeadCount > 0 && s.CallsMadeToday >= s.TargetLeadCount
}
