package reporting

import (
	"context"
	"errors"
	"time"

	"sterling-dialer/internal/calls"
	"sterling-dialer/internal/outcome"
	"sterling-dialer/internal/wallet"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// CallLister reads immutable call records.
type CallLister interface {
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]calls.Record, error)
}

// EntryLister reads immutable wallet entries.
type EntryLister interface {
	ListEntries(ctx context.Context, userID string, from, to time.Time) ([]wallet.Entry, error)
}

type Service struct {
	calls   CallLister
	entries EntryLister
	clock   func() time.Time
}

func NewService(callRepo CallLister, entryRepo EntryLister) *Service {
	return &Service{calls: callRepo, entries: entryRepo, clock: time.Now}
}

func validRange(userID string, r TimeRange) bool {
	return userID != "" && !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if !validRange(req.UserID, req.Range) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.calls == nil {
		return CallsSummary{}, errors.New("reporting: call repository not configured")
	}
	rows, err := s.calls.ListByUser(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{UserID: req.UserID, Outcomes: map[string]int{}, AICost: decimal.Zero}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		out.AICost = out.AICost.Add(c.Cost)
		if c.InVoicemail {
			out.Voicemails++
		}
		if c.WasDoubleDial {
			out.DoubleDials++
		}
		if !c.Answered {
			out.NoAnswerCalls++
			continue
		}
		out.AnsweredCalls++
		out.Outcomes[c.Outcome]++
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) SpendSummary(ctx context.Context, req SpendSummaryRequest) (SpendSummary, error) {
	if !validRange(req.UserID, req.Range) {
		return SpendSummary{}, ErrInvalidRequest
	}
	if s.entries == nil {
		return SpendSummary{}, errors.New("reporting: wallet repository not configured")
	}
	rows, err := s.entries.ListEntries(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return SpendSummary{}, err
	}

	out := SpendSummary{
		UserID:       req.UserID,
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
		CallCharges:  decimal.Zero,
		AutoRefills:  decimal.Zero,
		ManualCredit: decimal.Zero,
	}
	for _, e := range rows {
		if e.Amount.IsPositive() {
			out.TotalCredit = out.TotalCredit.Add(e.Amount)
		} else {
			out.TotalDebit = out.TotalDebit.Add(e.Amount.Neg())
		}
		switch e.Type {
		case wallet.LedgerEntryTypeDebit:
			out.CallCharges = out.CallCharges.Add(e.Amount.Neg())
		case wallet.LedgerEntryTypeCredit:
			out.AutoRefills = out.AutoRefills.Add(e.Amount)
			out.RefillCount++
		case wallet.LedgerEntryTypeManual:
			out.ManualCredit = out.ManualCredit.Add(e.Amount)
		}
	}
	out.NetDelta = out.TotalCredit.Sub(out.TotalDebit)
	return out, nil
}

func (s *Service) ConversionMetrics(ctx context.Context, req CallsSummaryRequest) (ConversionMetrics, error) {
	sum, err := s.CallsSummary(ctx, req)
	if err != nil {
		return ConversionMetrics{}, err
	}
	return conversionFrom(sum), nil
}

func conversionFrom(sum CallsSummary) ConversionMetrics {
	out := ConversionMetrics{
		UserID:         sum.UserID,
		CallsAttempted: sum.TotalCalls,
		CallsConnected: sum.AnsweredCalls,
		Conversions:    sum.Outcomes[string(outcome.Booked)],
	}
	if out.CallsAttempted > 0 {
		out.ConnectionRate = float64(out.CallsConnected) / float64(out.CallsAttempted)
		out.ConversionRate = float64(out.Conversions) / float64(out.CallsAttempted)
	}
	return out
}

// Today reports on the caller's current calendar day in loc.
func (s *Service) Today(ctx context.Context, userID string, loc *time.Location) (TodayReport, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := s.clock().In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	rng := TimeRange{From: start.UTC(), To: start.AddDate(0, 0, 1).UTC()}

	var (
		callSum CallsSummary
		spend   SpendSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		callSum, err = s.CallsSummary(gctx, CallsSummaryRequest{UserID: userID, Range: rng})
		return err
	})
	g.Go(func() error {
		var err error
		spend, err = s.SpendSummary(gctx, SpendSummaryRequest{UserID: userID, Range: rng})
		return err
	})
	if err := g.Wait(); err != nil {
		return TodayReport{}, err
	}
	return TodayReport{
		Date:       start.Format(time.DateOnly),
		Calls:      callSum,
		Spend:      spend,
		Conversion: conversionFrom(callSum),
	}, nil
}
