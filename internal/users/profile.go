package users

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Profile is the per-user dialing configuration read by the webhook pipeline.
// It is maintained by the settings pages; this service only reads it.
type Profile struct {
	UserID string `json:"user_id" db:"user_id"`
	Tier   string `json:"tier" db:"tier"`

	AgentID    string `json:"agent_id" db:"agent_id"`
	FromNumber string `json:"from_number" db:"from_number"`

	SchedulingAPIKey string          `json:"-" db:"scheduling_api_key"`
	MonthlyRetainer  decimal.Decimal `json:"monthly_retainer" db:"monthly_retainer"`
	Timezone         string          `json:"timezone" db:"timezone"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var ErrNotFound = errors.New("users: profile not found")

type Repository interface {
	Get(ctx context.Context, userID string) (Profile, error)
}

// Location resolves the profile's timezone, falling back when unset or unknown.
func (p Profile) Location(fallback *time.Location) *time.Location {
	if p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

// CanRedial reports whether the profile carries what a re-dial needs.
func (p Profile) CanRedial() bool {
	return p.AgentID != "" && p.FromNumber != ""
}
