package appointments

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// PostgresRepo relies on UNIQUE (lead_id) on appointments.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const apptColumns = `id, user_id, lead_id, call_id, scheduled_at, booking_uid, needs_confirmation, matched_by, status, created_at`

func scanAppointment(row interface{ Scan(...any) error }) (Appointment, error) {
	var a Appointment
	var callID, uid sql.NullString
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.LeadID,
		&callID,
		&a.ScheduledAt,
		&uid,
		&a.NeedsConfirmation,
		&a.MatchedBy,
		&a.Status,
		&a.CreatedAt,
	); err != nil {
		return Appointment{}, err
	}
	a.CallID = callID.String
	a.BookingUID = uid.String
	return a, nil
}

func (r *PostgresRepo) FindByLead(ctx context.Context, leadID string) (Appointment, bool, error) {
	q := `SELECT ` + apptColumns + ` FROM appointments WHERE lead_id = $1`
	a, err := scanAppointment(r.db.QueryRowContext(ctx, q, leadID))
	if errors.Is(err, sql.ErrNoRows) {
		return Appointment{}, false, nil
	}
	if err != nil {
		return Appointment{}, false, err
	}
	return a, true, nil
}

func (r *PostgresRepo) CreateIfAbsent(ctx context.Context, a Appointment) (Appointment, bool, error) {
	q := `
INSERT INTO appointments (` + apptColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (lead_id) DO NOTHING
RETURNING ` + apptColumns
	out, err := scanAppointment(r.db.QueryRowContext(ctx, q,
		a.ID,
		a.UserID,
		a.LeadID,
		a.CallID,
		a.ScheduledAt,
		a.BookingUID,
		a.NeedsConfirmation,
		a.MatchedBy,
		a.Status,
		a.CreatedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		existing, ok, err := r.FindByLead(ctx, a.LeadID)
		if err != nil {
			return Appointment{}, false, err
		}
		if !ok {
			return Appointment{}, false, errors.New("appointments: conflict without existing row")
		}
		return existing, false, nil
	}
	if err != nil {
		return Appointment{}, false, err
	}
	return out, true, nil
}

// MemoryRepo is an in-memory appointment store for tests and local runs.
type MemoryRepo struct {
	mu     sync.Mutex
	byLead map[string]Appointment
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byLead: map[string]Appointment{}} }

func (r *MemoryRepo) FindByLead(ctx context.Context, leadID string) (Appointment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byLead[leadID]
	return a, ok, nil
}

func (r *MemoryRepo) CreateIfAbsent(ctx context.Context, a Appointment) (Appointment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byLead[a.LeadID]; ok {
		return existing, false, nil
	}
	r.byLead[a.LeadID] = a
	return a, true, nil
}

// Count returns the number of stored appointments.
func (r *MemoryRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byLead)
}
