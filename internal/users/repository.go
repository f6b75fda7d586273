package users

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, userID string) (Profile, error) {
	const q = `
SELECT user_id, tier, agent_id, from_number, scheduling_api_key, monthly_retainer, timezone, updated_at
FROM user_profiles
WHERE user_id = $1
`
	var p Profile
	var agentID, fromNumber, apiKey, tz sql.NullString
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID,
		&p.Tier,
		&agentID,
		&fromNumber,
		&apiKey,
		&p.MonthlyRetainer,
		&tz,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	p.AgentID = agentID.String
	p.FromNumber = fromNumber.String
	p.SchedulingAPIKey = apiKey.String
	p.Timezone = tz.String
	return p, nil
}

// MemoryRepo is an in-memory profile store for tests and local runs.
type MemoryRepo struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryRepo(seed ...Profile) *MemoryRepo {
	r := &MemoryRepo{profiles: make(map[string]Profile, len(seed))}
	for _, p := range seed {
		r.profiles[p.UserID] = p
	}
	return r
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}
