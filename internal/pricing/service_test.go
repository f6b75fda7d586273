package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newService(rates ...TierRate) *Service {
	s := NewService(&MemoryRepo{Rates: rates})
	s.clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func rate(tier, perMinute string, from time.Time) TierRate {
	return TierRate{
		Tier:          tier,
		Currency:      "usd",
		CostPerMinute: decimal.RequireFromString(perMinute),
		EffectiveFrom: from,
		Status:        PricingStatusActive,
	}
}

func TestCallCost_MinutesTimesRate(t *testing.T) {
	s := newService(rate("standard", "0.30", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	got, err := s.CallCost(context.Background(), "standard", 180000, true)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("0.90")) {
		t.Fatalf("expected 0.90, got %s", got.Amount)
	}
	if !got.Minutes.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3 minutes, got %s", got.Minutes)
	}
}

func TestCallCost_FractionalMinutes(t *testing.T) {
	s := newService(rate("pro", "0.25", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	// 90.5s = 1.5083 minutes
	got, err := s.CallCost(context.Background(), "pro", 90500, true)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("0.3771")) {
		t.Fatalf("expected 0.3771, got %s", got.Amount)
	}
}

func TestCallCost_ZeroWhenUnansweredOrEmpty(t *testing.T) {
	// No rates configured: the lookup must not happen.
	s := newService()

	for _, tc := range []struct {
		ms       int64
		answered bool
	}{{0, true}, {120000, false}, {0, false}} {
		got, err := s.CallCost(context.Background(), "standard", tc.ms, tc.answered)
		if err != nil {
			t.Fatalf("unexpected err for %+v: %v", tc, err)
		}
		if !got.Amount.IsZero() {
			t.Fatalf("expected zero cost for %+v, got %s", tc, got.Amount)
		}
	}
}

func TestCallCost_PicksNewestEffectiveRate(t *testing.T) {
	old := rate("standard", "0.20", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	cur := rate("standard", "0.30", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	future := rate("standard", "0.50", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newService(old, cur, future)

	got, err := s.CallCost(context.Background(), "", 60000, true)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if !got.CostPerMinute.Equal(decimal.RequireFromString("0.30")) {
		t.Fatalf("expected current rate, got %s", got.CostPerMinute)
	}
	if got.Tier != DefaultTier {
		t.Fatalf("expected default tier, got %q", got.Tier)
	}
}

func TestCallCost_Errors(t *testing.T) {
	s := newService()
	if _, err := s.CallCost(context.Background(), "gold", 60000, true); err != ErrPricingNotFound {
		t.Fatalf("expected ErrPricingNotFound, got %v", err)
	}
	if _, err := s.CallCost(context.Background(), "gold", -1, true); err != ErrInvalidPricingReq {
		t.Fatalf("expected ErrInvalidPricingReq, got %v", err)
	}
}
