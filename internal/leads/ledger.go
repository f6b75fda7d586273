package leads

import (
	"context"
	"errors"
	"math"
	"time"
)

// DeadLeadThreshold is the total call count at which an unanswered lead is retired.
const DeadLeadThreshold = 20

var (
	ErrNotFound      = errors.New("leads: lead not found")
	ErrInvalidResult = errors.New("leads: invalid session result")
)

// Repository persists leads. Update must run fn against a freshly locked row and
// write every returned field in a single statement.
type Repository interface {
	Get(ctx context.Context, leadID string) (Lead, error)
	Update(ctx context.Context, leadID string, fn func(Lead) (Lead, error)) (Lead, error)
}

// Result is what a completed dial session contributes to a lead.
type Result struct {
	Answered bool
	// Status is the classified outcome; ignored when the session was not answered.
	Status Status
	At     time.Time
}

type Ledger struct {
	repo  Repository
	clock func() time.Time
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, clock: time.Now}
}

func (l *Ledger) Get(ctx context.Context, leadID string) (Lead, error) {
	if leadID == "" {
		return Lead{}, ErrNotFound
	}
	return l.repo.Get(ctx, leadID)
}

// Complete records one completed dial session against the lead.
func (l *Ledger) Complete(ctx context.Context, leadID string, res Result) (Lead, error) {
	if leadID == "" {
		return Lead{}, ErrNotFound
	}
	if res.Answered && !res.Status.Valid() {
		return Lead{}, ErrInvalidResult
	}
	at := res.At
	if at.IsZero() {
		at = l.clock()
	}
	at = at.UTC()

	return l.repo.Update(ctx, leadID, func(cur Lead) (Lead, error) {
		return applySession(cur, res, at), nil
	})
}

func applySession(cur Lead, res Result, at time.Time) Lead {
	next := cur
	next.CallAttemptsToday++
	next.TotalCallsMade++

	switch {
	case res.Answered:
		next.TotalPickups++
		next.PickupRate = pickupRate(next.TotalPickups, next.TotalCallsMade)
		next.Status = res.Status
		next.LastCallOutcome = string(res.Status)
	case next.TotalCallsMade >= DeadLeadThreshold:
		next.Status = StatusDeadLead
		next.LastCallOutcome = string(StatusNoAnswer)
	default:
		next.Status = StatusNoAnswer
		next.LastCallOutcome = string(StatusNoAnswer)
	}

	next.LastDialAt = &at
	next.UpdatedAt = at
	return next
}

func pickupRate(pickups, calls int) float64 {
	if calls <= 0 {
		return 0
	}
	return math.Round(float64(pickups)/float64(calls)*10000) / 100
}
