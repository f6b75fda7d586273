package campaign

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"sterling-dialer/pkg/utils"
)

// Repository persists control state. Update runs fn against a locked, freshly read row.
type Repository interface {
	Get(ctx context.Context, userID string) (State, error)
	Update(ctx context.Context, userID string, fn func(State) (State, error)) (State, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const stateColumns = `user_id, status, execution_mode, target_lead_count, daily_spend_limit,
       today_spend, calls_made_today, stop_reason, updated_at`

func scanState(row interface{ Scan(...any) error }) (State, error) {
	var s State
	var reason sql.NullString
	if err := row.Scan(
		&s.UserID,
		&s.Status,
		&s.ExecutionMode,
		&s.TargetLeadCount,
		&s.DailySpendLimit,
		&s.TodaySpend,
		&s.CallsMadeToday,
		&reason,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, ErrNotFound
		}
		return State{}, err
	}
	s.StopReason = StopReason(reason.String)
	return s, nil
}

func (r *PostgresRepo) Get(ctx context.Context, userID string) (State, error) {
	q := `SELECT ` + stateColumns + ` FROM ai_control_states WHERE user_id = $1`
	return scanState(utils.Conn(ctx, r.db).QueryRowContext(ctx, q, userID))
}

func (r *PostgresRepo) Update(ctx context.Context, userID string, fn func(State) (State, error)) (State, error) {
	var out State
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		q := `SELECT ` + stateColumns + ` FROM ai_control_states WHERE user_id = $1 FOR UPDATE`
		cur, err := scanState(tx.QueryRowContext(ctx, q, userID))
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		const upd = `
UPDATE ai_control_states
SET status = $2,
    today_spend = $3,
    calls_made_today = $4,
    stop_reason = $5,
    updated_at = $6
WHERE user_id = $1
`
		if _, err := tx.ExecContext(ctx, upd,
			userID,
			next.Status,
			next.TodaySpend,
			next.CallsMadeToday,
			string(next.StopReason),
			next.UpdatedAt,
		); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// MemoryRepo is an in-memory control state store for tests and local runs.
type MemoryRepo struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryRepo(seed ...State) *MemoryRepo {
	r := &MemoryRepo{states: make(map[string]State, len(seed))}
	for _, s := range seed {
		r.states[s.UserID] = s
	}
	return r
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[userID]
	if !ok {
		return State{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) Update(ctx context.Context, userID string, fn func(State) (State, error)) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.states[userID]
	if !ok {
		return State{}, ErrNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return State{}, err
	}
	r.states[userID] = next
	return next, nil
}
