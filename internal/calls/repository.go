package calls

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"sterling-dialer/pkg/utils"

	"github.com/google/uuid"
)

// PostgresRepo stores records in call_records (UNIQUE provider_call_id).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Exists(ctx context.Context, providerCallID string) (bool, error) {
	var ok bool
	err := utils.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM call_records WHERE provider_call_id = $1)`, providerCallID,
	).Scan(&ok)
	return ok, err
}

func (r *PostgresRepo) Create(ctx context.Context, rec Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	const q = `
INSERT INTO call_records (
  id, provider_call_id, user_id, lead_id, cost, duration_seconds, outcome, disposition,
  hangup_by, answered, in_voicemail, was_double_dial, summary, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (provider_call_id) DO NOTHING
`
	res, err := utils.Conn(ctx, r.db).ExecContext(ctx, q,
		rec.ID,
		rec.ProviderCallID,
		rec.UserID,
		rec.LeadID,
		rec.Cost,
		rec.DurationSeconds,
		rec.Outcome,
		rec.Disposition,
		rec.HangupBy,
		rec.Answered,
		rec.InVoicemail,
		rec.WasDoubleDial,
		rec.Summary,
		rec.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]Record, error) {
	const q = `
SELECT id, provider_call_id, user_id, lead_id, cost, duration_seconds, outcome, disposition,
       hangup_by, answered, in_voicemail, was_double_dial, summary, created_at
FROM call_records
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID,
			&rec.ProviderCallID,
			&rec.UserID,
			&rec.LeadID,
			&rec.Cost,
			&rec.DurationSeconds,
			&rec.Outcome,
			&rec.Disposition,
			&rec.HangupBy,
			&rec.Answered,
			&rec.InVoicemail,
			&rec.WasDoubleDial,
			&rec.Summary,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MemoryRepo is an in-memory record store for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{records: map[string]Record{}} }

func (m *MemoryRepo) Exists(ctx context.Context, providerCallID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[providerCallID]
	return ok, nil
}

func (m *MemoryRepo) Create(ctx context.Context, rec Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ProviderCallID]; ok {
		return false, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.records[rec.ProviderCallID] = rec
	return true, nil
}

func (m *MemoryRepo) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, rec := range m.records {
		if rec.UserID != userID || rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len returns the number of stored records.
func (m *MemoryRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
