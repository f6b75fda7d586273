package pricing

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo reads tier rates from the tier_rates table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) FindTierRate(ctx context.Context, tier string, at time.Time) (TierRate, bool, error) {
	const q = `
SELECT id, tier, currency, cost_per_minute, effective_from, effective_to, status, created_at, updated_at
FROM tier_rates
WHERE tier = $1
  AND status = 'active'
  AND effective_from <= $2
  AND (effective_to IS NULL OR effective_to > $2)
ORDER BY effective_from DESC
LIMIT 1
`
	var p TierRate
	var effectiveTo sql.NullTime
	err := r.db.QueryRowContext(ctx, q, tier, at).Scan(
		&p.ID,
		&p.Tier,
		&p.Currency,
		&p.CostPerMinute,
		&p.EffectiveFrom,
		&effectiveTo,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TierRate{}, false, nil
		}
		return TierRate{}, false, err
	}
	if effectiveTo.Valid {
		t := effectiveTo.Time
		p.EffectiveTo = &t
	}
	return p, true, nil
}
