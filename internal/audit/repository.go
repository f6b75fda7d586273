package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends to audit_events. It never updates or deletes.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, user_id, type, actor_user_id, actor_role, ip_address, call_id, lead_id, message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,'')::jsonb,$11)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.UserID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.CallID,
		e.LeadID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
