package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Service prices calls from the caller's tier rate.
// Pure calculation plus a repository lookup; no side effects.
type Service struct {
	repo  RateRepository
	clock func() time.Time
}

func NewService(repo RateRepository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// RateRepository abstracts tier rate persistence.
type RateRepository interface {
	FindTierRate(ctx context.Context, tier string, at time.Time) (TierRate, bool, error)
}

// CallCost is the priced result for one call.
type CallCost struct {
	Tier          string
	Currency      string
	Minutes       decimal.Decimal
	CostPerMinute decimal.Decimal
	Amount        decimal.Decimal
}

var (
	ErrPricingNotFound   = errors.New("pricing: no active rate for tier")
	ErrInvalidPricingReq = errors.New("pricing: invalid request")
)

var msPerMinute = decimal.NewFromInt(60000)

// CallCost prices a call as duration_minutes * cost_per_minute.
// Unanswered and zero-length calls cost nothing and skip the rate lookup.
func (s *Service) CallCost(ctx context.Context, tier string, durationMs int64, answered bool) (CallCost, error) {
	if durationMs < 0 {
		return CallCost{}, ErrInvalidPricingReq
	}
	if tier == "" {
		tier = DefaultTier
	}

	minutes := Minutes(durationMs)
	if !answered || minutes.IsZero() {
		return CallCost{Tier: tier, Minutes: decimal.Zero, CostPerMinute: decimal.Zero, Amount: decimal.Zero}, nil
	}

	rate, ok, err := s.repo.FindTierRate(ctx, tier, s.clock().UTC())
	if err != nil {
		return CallCost{}, err
	}
	if !ok {
		return CallCost{}, ErrPricingNotFound
	}

	return CallCost{
		Tier:          tier,
		Currency:      rate.Currency,
		Minutes:       minutes,
		CostPerMinute: rate.CostPerMinute,
		Amount:        minutes.Mul(rate.CostPerMinute).Round(4),
	}, nil
}

// Minutes converts milliseconds to minutes at four decimal places.
func Minutes(durationMs int64) decimal.Decimal {
	if durationMs <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(durationMs).DivRound(msPerMinute, 4)
}
