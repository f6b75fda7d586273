package reporting

import (
	"context"
	"testing"
	"time"

	"sterling-dialer/internal/calls"
	"sterling-dialer/internal/wallet"

	"github.com/shopspring/decimal"
)

var now = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func seedCalls(t *testing.T) *calls.MemoryRepo {
	t.Helper()
	repo := calls.NewMemoryRepo()
	rows := []calls.Record{
		{ProviderCallID: "c1", UserID: "u1", LeadID: "l1", Answered: true, Outcome: "appointment_booked", DurationSeconds: 180, Cost: decimal.RequireFromString("0.9"), CreatedAt: now},
		{ProviderCallID: "c2", UserID: "u1", LeadID: "l2", Answered: true, Outcome: "not_interested", DurationSeconds: 60, Cost: decimal.RequireFromString("0.3"), CreatedAt: now},
		{ProviderCallID: "c3", UserID: "u1", LeadID: "l3", Outcome: "no_answer", InVoicemail: true, WasDoubleDial: true, CreatedAt: now},
		{ProviderCallID: "c4", UserID: "u2", LeadID: "l4", Answered: true, Outcome: "appointment_booked", DurationSeconds: 50, CreatedAt: now},
		{ProviderCallID: "c5", UserID: "u1", LeadID: "l5", Answered: true, Outcome: "appointment_booked", CreatedAt: now.Add(-48 * time.Hour)},
	}
	for _, r := range rows {
		if _, err := repo.Create(context.Background(), r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return repo
}

func TestReporting_CallsSummaryIsolatesUser(t *testing.T) {
	svc := NewService(seedCalls(t), nil)
	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{UserID: "u1", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 3 || out.AnsweredCalls != 2 || out.NoAnswerCalls != 1 {
		t.Fatalf("unexpected counts %+v", out)
	}
	if out.Voicemails != 1 || out.DoubleDials != 1 || out.Outcomes["appointment_booked"] != 1 {
		t.Fatalf("unexpected breakdown %+v", out)
	}
	if !out.AICost.Equal(decimal.RequireFromString("1.2")) || out.AverageDurationSeconds != 80 {
		t.Fatalf("unexpected cost/duration %+v", out)
	}
}

func TestReporting_SpendSummaryAggregates(t *testing.T) {
	repo := wallet.NewMemoryRepo(wallet.Account{UserID: "u1", Balance: decimal.NewFromInt(5), Currency: "usd"})
	post := func(typ wallet.LedgerEntryType, amount, key string) {
		if _, _, _, err := repo.Post(context.Background(), wallet.Entry{
			ID: key, UserID: "u1", Type: typ, Amount: decimal.RequireFromString(amount), IdempotencyKey: key, CreatedAt: now,
		}); err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	post(wallet.LedgerEntryTypeDebit, "-0.9", "call:c1")
	post(wallet.LedgerEntryTypeDebit, "-0.3", "call:c2")
	post(wallet.LedgerEntryTypeCredit, "25", "refill:c2")
	post(wallet.LedgerEntryTypeManual, "10", "manual:1")

	svc := NewService(nil, repo)
	out, err := svc.SpendSummary(context.Background(), SpendSummaryRequest{UserID: "u1", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !out.TotalDebit.Equal(decimal.RequireFromString("1.2")) || !out.TotalCredit.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("unexpected totals %+v", out)
	}
	if !out.NetDelta.Equal(decimal.RequireFromString("33.8")) || out.RefillCount != 1 {
		t.Fatalf("unexpected net/refills %+v", out)
	}
	if !out.CallCharges.Equal(decimal.RequireFromString("1.2")) || !out.ManualCredit.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected categories %+v", out)
	}
}

func TestReporting_TodayUsesLocalDay(t *testing.T) {
	repo := wallet.NewMemoryRepo(wallet.Account{UserID: "u1"})
	svc := NewService(seedCalls(t), repo)
	svc.clock = func() time.Time { return now }

	rep, err := svc.Today(context.Background(), "u1", time.UTC)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if rep.Date != "2026-03-01" || rep.Calls.TotalCalls != 3 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Conversion.Conversions != 1 || rep.Conversion.CallsConnected != 2 {
		t.Fatalf("unexpected conversion %+v", rep.Conversion)
	}
}

func TestReporting_RejectsBadRange(t *testing.T) {
	svc := NewService(calls.NewMemoryRepo(), nil)
	if _, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{UserID: "u1", Range: TimeRange{From: now, To: now}}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{Range: TimeRange{From: now, To: now.Add(time.Hour)}}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
