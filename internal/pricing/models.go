package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// TierRate is the per-minute price charged to users on a subscription tier.
// Rows are versioned by effective window; the newest active row wins.
type TierRate struct {
	ID   string `json:"id" db:"id"`
	Tier string `json:"tier" db:"tier"`

	Currency      string          `json:"currency" db:"currency"`
	CostPerMinute decimal.Decimal `json:"cost_per_minute" db:"cost_per_minute"`

	EffectiveFrom time.Time  `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty" db:"effective_to"`

	Status PricingStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type PricingStatus string

const (
	PricingStatusActive   PricingStatus = "active"
	PricingStatusInactive PricingStatus = "inactive"
)

// DefaultTier is used for profiles without an explicit tier.
const DefaultTier = "standard"

func (r TierRate) effectiveAt(at time.Time) bool {
	if r.Status != PricingStatusActive {
		return false
	}
	if at.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !at.Before(*r.EffectiveTo) {
		return false
	}
	return true
}
