package leads

import (
	"context"
	"database/sql"
	"errors"

	"sterling-dialer/pkg/utils"
)

// PostgresRepo stores leads in the leads table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const leadColumns = `id, user_id, name, phone, status, call_attempts_today, total_calls_made,
       total_pickups, pickup_rate, last_call_outcome, last_dial_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var l Lead
	var lastOutcome sql.NullString
	var lastDial sql.NullTime
	if err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.Name,
		&l.Phone,
		&l.Status,
		&l.CallAttemptsToday,
		&l.TotalCallsMade,
		&l.TotalPickups,
		&l.PickupRate,
		&lastOutcome,
		&lastDial,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	l.LastCallOutcome = lastOutcome.String
	if lastDial.Valid {
		t := lastDial.Time
		l.LastDialAt = &t
	}
	return l, nil
}

func (r *PostgresRepo) Get(ctx context.Context, leadID string) (Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return scanLead(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, leadID))
}

func (r *PostgresRepo) Update(ctx context.Context, leadID string, fn func(Lead) (Lead, error)) (Lead, error) {
	var out Lead
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		q := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 FOR UPDATE`
		cur, err := scanLead(tx.QueryRowContext(ctx, q, leadID))
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}

		const upd = `
UPDATE leads
SET status = $2,
    call_attempts_today = $3,
    total_calls_made = $4,
    total_pickups = $5,
    pickup_rate = $6,
    last_call_outcome = $7,
    last_dial_at = $8,
    updated_at = $9
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, upd,
			leadID,
			next.Status,
			next.CallAttemptsToday,
			next.TotalCallsMade,
			next.TotalPickups,
			next.PickupRate,
			next.LastCallOutcome,
			next.LastDialAt,
			next.UpdatedAt,
		); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}
