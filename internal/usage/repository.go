package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// Add upserts the day row. retainer_share is only written by the INSERT branch.
func (r *PostgresRepo) Add(ctx context.Context, userID, date string, cost, retainerShare decimal.Decimal, at time.Time) (Day, error) {
	const q = `
INSERT INTO usage_days (user_id, usage_date, ai_cost, calls, retainer_share, created_at, updated_at)
VALUES ($1, $2::date, $3, 1, $4, $5, $5)
ON CONFLICT (user_id, usage_date)
DO UPDATE SET ai_cost = usage_days.ai_cost + EXCLUDED.ai_cost,
              calls = usage_days.calls + 1,
              updated_at = EXCLUDED.updated_at
RETURNING user_id, to_char(usage_date, 'YYYY-MM-DD'), ai_cost, calls, retainer_share, created_at, updated_at
`
	var d Day
	if err := r.db.QueryRowContext(ctx, q, userID, date, cost, retainerShare, at).Scan(
		&d.UserID,
		&d.Date,
		&d.AICost,
		&d.Calls,
		&d.RetainerShare,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return Day{}, err
	}
	return d, nil
}

func (r *PostgresRepo) Get(ctx context.Context, userID, date string) (Day, bool, error) {
	const q = `
SELECT user_id, to_char(usage_date, 'YYYY-MM-DD'), ai_cost, calls, retainer_share, created_at, updated_at
FROM usage_days
WHERE user_id = $1 AND usage_date = $2::date
`
	var d Day
	err := r.db.QueryRowContext(ctx, q, userID, date).Scan(
		&d.UserID,
		&d.Date,
		&d.AICost,
		&d.Calls,
		&d.RetainerShare,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Day{}, false, nil
	}
	if err != nil {
		return Day{}, false, err
	}
	return d, true, nil
}
