package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"sterling-dialer/internal/scheduling"
)

type fakeSource struct {
	bookings []scheduling.Booking
	err      error
	calls    int
}

func (f *fakeSource) RecentBookings(ctx context.Context, apiKey string) ([]scheduling.Booking, error) {
	f.calls++
	return f.bookings, f.err
}

var now = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

func newTestReconciler(repo Repository, src BookingSource) *Reconciler {
	r := NewReconciler(repo, src, 5*time.Second, 10*time.Minute, nil)
	r.clock = func() time.Time { return now }
	r.sleep = func(context.Context, time.Duration) {}
	return r
}

func TestReconcile_MatchOrder(t *testing.T) {
	phoneBooking := scheduling.Booking{
		UID: "by-phone", Start: now.Add(24 * time.Hour), CreatedAt: now.Add(-time.Hour),
		Attendees: []scheduling.Attendee{{Name: "Someone Else", PhoneNumber: "+1 (555) 123-4567"}},
	}
	nameBooking := scheduling.Booking{
		UID: "by-name", Start: now.Add(48 * time.Hour), CreatedAt: now.Add(-time.Hour),
		Attendees: []scheduling.Attendee{{Name: "Jane"}},
	}
	recentBooking := scheduling.Booking{
		UID: "recent", Start: now.Add(72 * time.Hour), CreatedAt: now.Add(-2 * time.Minute),
	}

	cases := []struct {
		name string
		req  Request
		want string
		by   MatchBy
	}{
		{"phone wins", Request{LeadName: "Jane Roe", LeadPhone: "15551234567"}, "by-phone", MatchPhone},
		{"name contains", Request{LeadName: "jane roe", LeadPhone: "9998887777"}, "by-name", MatchName},
		{"recent fallback", Request{LeadName: "Bob", LeadPhone: ""}, "recent", MatchRecent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := NewMemoryRepo()
			src := &fakeSource{bookings: []scheduling.Booking{recentBooking, nameBooking, phoneBooking}}
			tc.req.UserID, tc.req.LeadID, tc.req.APIKey = "u1", "l1", "key"

			a, created, err := newTestReconciler(repo, src).Reconcile(context.Background(), tc.req)
			if err != nil || !created {
				t.Fatalf("reconcile: created=%v err=%v", created, err)
			}
			if a.BookingUID != tc.want || a.MatchedBy != tc.by || a.NeedsConfirmation {
				t.Fatalf("got %+v", a)
			}
		})
	}
}

func TestReconcile_PlaceholderWhenNothingMatches(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	stale := scheduling.Booking{UID: "old", Start: now.Add(time.Hour), CreatedAt: now.Add(-2 * time.Hour)}
	for _, src := range []*fakeSource{
		{bookings: []scheduling.Booking{stale}},
		{err: errors.New("boom")},
	} {
		repo := NewMemoryRepo()
		a, created, err := newTestReconciler(repo, src).Reconcile(context.Background(), Request{
			UserID: "u1", LeadID: "l1", LeadName: "Bob", APIKey: "key", Location: ny,
		})
		if err != nil || !created {
			t.Fatalf("reconcile: created=%v err=%v", created, err)
		}
		want := time.Date(2026, 3, 2, 12, 0, 0, 0, ny).UTC()
		if !a.NeedsConfirmation || a.MatchedBy != MatchNone || !a.ScheduledAt.Equal(want) {
			t.Fatalf("expected placeholder at %v, got %+v", want, a)
		}
	}
}

func TestReconcile_OncePerLead(t *testing.T) {
	repo := NewMemoryRepo()
	src := &fakeSource{}
	r := newTestReconciler(repo, src)
	req := Request{UserID: "u1", LeadID: "l1", APIKey: "key"}

	first, created, err := r.Reconcile(context.Background(), req)
	if err != nil || !created {
		t.Fatalf("first: created=%v err=%v", created, err)
	}
	second, created, err := r.Reconcile(context.Background(), req)
	if err != nil || created {
		t.Fatalf("second: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || repo.Count() != 1 {
		t.Fatalf("expected one appointment, got %d", repo.Count())
	}
	if src.calls != 1 {
		t.Fatalf("expected scheduler queried once, got %d", src.calls)
	}
}

func TestReconcile_NoAPIKeySkipsLookup(t *testing.T) {
	src := &fakeSource{bookings: []scheduling.Booking{{UID: "x", CreatedAt: now}}}
	a, _, err := newTestReconciler(NewMemoryRepo(), src).Reconcile(context.Background(), Request{UserID: "u1", LeadID: "l1"})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if src.calls != 0 || !a.NeedsConfirmation {
		t.Fatalf("expected placeholder without lookup, calls=%d appt=%+v", src.calls, a)
	}
}

func TestReconcile_InvalidRequest(t *testing.T) {
	if _, _, err := newTestReconciler(NewMemoryRepo(), nil).Reconcile(context.Background(), Request{}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestPlaceholder_UTCDefault(t *testing.T) {
	got := Placeholder(time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC), nil)
	if want := time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
