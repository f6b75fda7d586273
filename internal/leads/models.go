package leads

import "time"

// Lead is a contact owned by a user's campaign.
// Counters move only through Ledger.Complete, once per completed dial session.
type Lead struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Name   string `json:"name" db:"name"`
	Phone  string `json:"phone" db:"phone"`

	Status Status `json:"status" db:"status"`

	// CallAttemptsToday counts dial sessions, not physical calls.
	CallAttemptsToday int     `json:"call_attempts_today" db:"call_attempts_today"`
	TotalCallsMade    int     `json:"total_calls_made" db:"total_calls_made"`
	TotalPickups      int     `json:"total_pickups" db:"total_pickups"`
	PickupRate        float64 `json:"pickup_rate" db:"pickup_rate"`
	LastCallOutcome   string  `json:"last_call_outcome,omitempty" db:"last_call_outcome"`

	LastDialAt *time.Time `json:"last_dial_at,omitempty" db:"last_dial_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusNew               Status = "new"
	StatusNoAnswer          Status = "no_answer"
	StatusNotInterested     Status = "not_interested"
	StatusCallbackLater     Status = "callback_later"
	StatusLiveTransfer      Status = "live_transfer"
	StatusAppointmentBooked Status = "appointment_booked"
	StatusUnclassified      Status = "unclassified"
	// StatusDeadLead is terminal; the lead selector skips it.
	StatusDeadLead Status = "dead_lead"
)

// Valid reports whether s is a known lead status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusNoAnswer, StatusNotInterested, StatusCallbackLater,
		StatusLiveTransfer, StatusAppointmentBooked, StatusUnclassified, StatusDeadLead:
		return true
	}
	return false
}
