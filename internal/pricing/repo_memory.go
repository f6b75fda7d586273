package pricing

import (
	"context"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and local runs.
type MemoryRepo struct {
	Rates []TierRate
}

func (r *MemoryRepo) FindTierRate(ctx context.Context, tier string, at time.Time) (TierRate, bool, error) {
	_ = ctx

	// Prefer the most recent effective row.
	var best TierRate
	found := false
	for _, p := range r.Rates {
		if p.Tier != tier || !p.effectiveAt(at) {
			continue
		}
		if !found || p.EffectiveFrom.After(best.EffectiveFrom) {
			best = p
			found = true
		}
	}
	return best, found, nil
}
