package appointments

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sterling-dialer/internal/scheduling"

	"github.com/google/uuid"
)

// BookingSource lists recent accepted bookings for a scheduling account.
type BookingSource interface {
	RecentBookings(ctx context.Context, apiKey string) ([]scheduling.Booking, error)
}

// Request describes the booked lead to reconcile.
type Request struct {
	UserID    string
	LeadID    string
	CallID    string
	LeadName  string
	LeadPhone string
	APIKey    string
	Location  *time.Location
}

// Reconciler ties an appointment_booked call to a scheduler booking.
// Matching is a heuristic: phone, then name, then recency. When nothing matches the
// appointment is still created at a placeholder time and flagged for confirmation.
type Reconciler struct {
	repo   Repository
	source BookingSource
	log    *slog.Logger

	grace  time.Duration
	window time.Duration

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewReconciler(repo Repository, source BookingSource, grace, window time.Duration, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		repo:   repo,
		source: source,
		log:    log,
		grace:  grace,
		window: window,
		clock:  time.Now,
		sleep:  sleepCtx,
	}
}

// Reconcile creates the lead's appointment once. created is false when one already existed.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (Appointment, bool, error) {
	if req.UserID == "" || req.LeadID == "" {
		return Appointment{}, false, ErrInvalidRequest
	}
	if existing, ok, err := r.repo.FindByLead(ctx, req.LeadID); err != nil {
		return Appointment{}, false, err
	} else if ok {
		return existing, false, nil
	}

	// Give the scheduler time to ingest the booking the agent just made.
	r.sleep(ctx, r.grace)

	log := r.log.With("user_id", req.UserID, "lead_id", req.LeadID)
	var bookings []scheduling.Booking
	if r.source != nil && req.APIKey != "" {
		var err error
		bookings, err = r.source.RecentBookings(ctx, req.APIKey)
		if err != nil {
			log.Warn("booking lookup failed; using placeholder", "err", err)
			bookings = nil
		}
	}

	now := r.clock()
	appt := Appointment{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		LeadID:    req.LeadID,
		CallID:    req.CallID,
		Status:    StatusScheduled,
		CreatedAt: now.UTC(),
	}
	if b, by, ok := match(bookings, req, now, r.window); ok {
		appt.ScheduledAt = b.Start.UTC()
		appt.BookingUID = b.UID
		appt.MatchedBy = by
	} else {
		appt.ScheduledAt = Placeholder(now, req.Location)
		appt.NeedsConfirmation = true
		appt.MatchedBy = MatchNone
		log.Info("no booking matched; placeholder appointment needs confirmation")
	}

	return r.repo.CreateIfAbsent(ctx, appt)
}

// Placeholder is noon local time on the day after now.
func Placeholder(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := now.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day()+1, 12, 0, 0, 0, loc).UTC()
}

func match(bookings []scheduling.Booking, req Request, now time.Time, window time.Duration) (scheduling.Booking, MatchBy, bool) {
	if len(bookings) == 0 {
		return scheduling.Booking{}, MatchNone, false
	}

	if want := lastTenDigits(req.LeadPhone); want != "" {
		for _, b := range bookings {
			for _, p := range b.Phones() {
				if lastTenDigits(p) == want {
					return b, MatchPhone, true
				}
			}
		}
	}

	if want := strings.ToLower(strings.TrimSpace(req.LeadName)); want != "" {
		for _, b := range bookings {
			for _, n := range b.Names() {
				got := strings.ToLower(strings.TrimSpace(n))
				if got != "" && (strings.Contains(got, want) || strings.Contains(want, got)) {
					return b, MatchName, true
				}
			}
		}
	}

	var best scheduling.Booking
	found := false
	for _, b := range bookings {
		if b.CreatedAt.IsZero() || now.Sub(b.CreatedAt) > window || b.CreatedAt.After(now.Add(time.Minute)) {
			continue
		}
		if !found || b.CreatedAt.After(best.CreatedAt) {
			best, found = b, true
		}
	}
	if found {
		return best, MatchRecent, true
	}
	return scheduling.Booking{}, MatchNone, false
}

func lastTenDigits(s string) string {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) < 10 {
		return ""
	}
	return string(digits[len(digits)-10:])
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
