package appointments

import (
	"context"
	"errors"
	"time"
)

// Appointment is the booked meeting that came out of an appointment_booked call.
// At most one exists per lead.
type Appointment struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	LeadID string `json:"lead_id" db:"lead_id"`
	CallID string `json:"call_id" db:"call_id"`

	ScheduledAt time.Time `json:"scheduled_at" db:"scheduled_at"`
	BookingUID  string    `json:"booking_uid,omitempty" db:"booking_uid"`

	// NeedsConfirmation marks a placeholder time the user must confirm by hand.
	NeedsConfirmation bool    `json:"needs_confirmation" db:"needs_confirmation"`
	MatchedBy         MatchBy `json:"matched_by" db:"matched_by"`
	Status            Status  `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MatchBy records which heuristic tied the call to a booking.
type MatchBy string

const (
	MatchPhone  MatchBy = "phone"
	MatchName   MatchBy = "name"
	MatchRecent MatchBy = "recent"
	MatchNone   MatchBy = "none"
)

type Status string

const StatusScheduled Status = "scheduled"

var ErrInvalidRequest = errors.New("appointments: invalid request")

// Repository stores appointments. CreateIfAbsent returns the existing row and
// created=false when the lead already has one.
type Repository interface {
	FindByLead(ctx context.Context, leadID string) (Appointment, bool, error)
	CreateIfAbsent(ctx context.Context, a Appointment) (Appointment, bool, error)
}
