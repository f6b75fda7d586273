package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics for one user.
type CallsSummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type CallsSummary struct {
	UserID string `json:"user_id"`

	TotalCalls    int `json:"total_calls"`
	AnsweredCalls int `json:"answered_calls"`
	NoAnswerCalls int `json:"no_answer_calls"`
	Voicemails    int `json:"voicemails"`
	DoubleDials   int `json:"double_dials"`

	// Outcomes counts answered calls by classified outcome.
	Outcomes map[string]int `json:"outcomes"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	AICost decimal.Decimal `json:"ai_cost"`
}

// SpendSummaryRequest requests aggregated balance movements.
// Spend is derived from the immutable wallet entries.
type SpendSummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type SpendSummary struct {
	UserID string `json:"user_id"`

	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	NetDelta    decimal.Decimal `json:"net_delta"`

	CallCharges  decimal.Decimal `json:"call_charges"`
	AutoRefills  decimal.Decimal `json:"auto_refills"`
	ManualCredit decimal.Decimal `json:"manual_credit"`
	RefillCount  int             `json:"refill_count"`
}

// ConversionMetrics is the booked-appointment funnel over a range.
type ConversionMetrics struct {
	UserID string `json:"user_id"`

	CallsAttempted int `json:"calls_attempted"`
	CallsConnected int `json:"calls_connected"`
	Conversions    int `json:"conversions"`

	ConnectionRate float64 `json:"connection_rate"`
	ConversionRate float64 `json:"conversion_rate"`
}

// TodayReport is the dashboard view of the caller's current local day.
type TodayReport struct {
	Date       string            `json:"date"`
	Calls      CallsSummary      `json:"calls"`
	Spend      SpendSummary      `json:"spend"`
	Conversion ConversionMetrics `json:"conversion"`
}
