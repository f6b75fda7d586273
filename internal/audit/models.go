package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - user_id is required; every event belongs to one account.
// - Audit writes are best-effort; webhook processing never fails on them.
type Event struct {
	ID     string    `json:"id" db:"id"`
	UserID string    `json:"user_id" db:"user_id"`
	Type   EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event, empty for system events.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	// ActorRole may include hidden roles.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	CallID string `json:"call_id,omitempty" db:"call_id"`
	LeadID string `json:"lead_id,omitempty" db:"lead_id"`

	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeAdminAction      EventType = "admin_action"
	EventTypeCampaignStarted  EventType = "campaign_started"
	EventTypeCampaignStopped  EventType = "campaign_stopped"
	EventTypeAutoRefill       EventType = "auto_refill"
	EventTypeAutoRefillFailed EventType = "auto_refill_failed"
	EventTypeDeadLead         EventType = "dead_lead"
)
