package usage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Day is one user's usage for one calendar date in their own timezone.
// RetainerShare is fixed when the row is created and never recomputed.
type Day struct {
	UserID        string          `json:"user_id" db:"user_id"`
	Date          string          `json:"date" db:"usage_date"`
	AICost        decimal.Decimal `json:"ai_cost" db:"ai_cost"`
	Calls         int             `json:"calls" db:"calls"`
	RetainerShare decimal.Decimal `json:"retainer_share" db:"retainer_share"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Total is the day's revenue: AI cost plus the retainer share.
func (d Day) Total() decimal.Decimal { return d.AICost.Add(d.RetainerShare) }

var ErrInvalidArgument = errors.New("usage: invalid argument")

// Repository adds to a day row, creating it with retainerShare when absent.
type Repository interface {
	Add(ctx context.Context, userID, date string, cost, retainerShare decimal.Decimal, at time.Time) (Day, error)
	Get(ctx context.Context, userID, date string) (Day, bool, error)
}

// Recorder books completed calls into daily usage rows.
type Recorder struct {
	repo     Repository
	fallback *time.Location
	clock    func() time.Time
}

func NewRecorder(repo Repository, fallback *time.Location) *Recorder {
	if fallback == nil {
		fallback = time.UTC
	}
	return &Recorder{repo: repo, fallback: fallback, clock: time.Now}
}

// Record adds one completed session and its cost to today's row.
// monthlyRetainer is spread evenly over the days of the current month.
func (r *Recorder) Record(ctx context.Context, userID string, cost, monthlyRetainer decimal.Decimal, loc *time.Location) (Day, error) {
	if userID == "" || cost.IsNegative() {
		return Day{}, ErrInvalidArgument
	}
	if loc == nil {
		loc = r.fallback
	}
	now := r.clock()
	local := now.In(loc)
	return r.repo.Add(ctx, userID, local.Format(time.DateOnly), cost, DailyRetainerShare(monthlyRetainer, local), now.UTC())
}

// Today returns the caller's usage row for the current local date.
func (r *Recorder) Today(ctx context.Context, userID string, loc *time.Location) (Day, bool, error) {
	if loc == nil {
		loc = r.fallback
	}
	return r.repo.Get(ctx, userID, r.clock().In(loc).Format(time.DateOnly))
}

// DailyRetainerShare divides a monthly retainer by the number of days in day's month.
func DailyRetainerShare(monthly decimal.Decimal, day time.Time) decimal.Decimal {
	if !monthly.IsPositive() {
		return decimal.Zero
	}
	days := daysIn(day)
	return monthly.DivRound(decimal.NewFromInt(int64(days)), 2)
}

func daysIn(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// MemoryRepo is an in-memory usage store for tests and local runs.
type MemoryRepo struct {
	mu   sync.Mutex
	days map[string]Day
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{days: map[string]Day{}} }

func (r *MemoryRepo) Add(ctx context.Context, userID, date string, cost, retainerShare decimal.Decimal, at time.Time) (Day, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := userID + "|" + date
	d, ok := r.days[k]
	if !ok {
		d = Day{UserID: userID, Date: date, RetainerShare: retainerShare, CreatedAt: at}
	}
	d.AICost = d.AICost.Add(cost)
	d.Calls++
	d.UpdatedAt = at
	r.days[k] = d
	return d, nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, date string) (Day, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[userID+"|"+date]
	return d, ok, nil
}
