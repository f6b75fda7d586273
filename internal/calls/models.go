package calls

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Record is the persisted outcome of one completed dialing session.
//
// ProviderCallID is unique; a replayed webhook must not produce a second record.
// Money lives in the wallet ledger, which references the provider call id.
type Record struct {
	ID             string `json:"id" db:"id"`
	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`
	UserID         string `json:"user_id" db:"user_id"`
	LeadID         string `json:"lead_id" db:"lead_id"`

	Cost decimal.Decimal `json:"cost" db:"cost"`

	// DurationSeconds is the provider-reported duration, rounded down.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	Outcome     string `json:"outcome" db:"outcome"`
	Disposition string `json:"disposition" db:"disposition"`
	HangupBy    string `json:"hangup_by" db:"hangup_by"`

	Answered      bool `json:"answered" db:"answered"`
	InVoicemail   bool `json:"in_voicemail" db:"in_voicemail"`
	WasDoubleDial bool `json:"was_double_dial" db:"was_double_dial"`

	Summary string `json:"summary,omitempty" db:"summary"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var ErrInvalidRecord = errors.New("calls: invalid record")

// Repository persists call records. Create reports created=false when a record
// for the same provider call id already exists.
type Repository interface {
	Exists(ctx context.Context, providerCallID string) (bool, error)
	Create(ctx context.Context, r Record) (bool, error)
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]Record, error)
}

// Validate checks the fields every record must carry.
func (r Record) Validate() error {
	if r.ProviderCallID == "" || r.UserID == "" || r.LeadID == "" {
		return ErrInvalidRecord
	}
	if r.Cost.IsNegative() || r.DurationSeconds < 0 {
		return ErrInvalidRecord
	}
	return nil
}
