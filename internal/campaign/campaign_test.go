package campaign

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	users  []string
	refuse bool
}

func (d *recordingDispatcher) Dispatch(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refuse {
		return false
	}
	d.users = append(d.users, userID)
	return true
}

func running(userID string) State {
	return State{
		UserID:          userID,
		Status:          StatusRunning,
		ExecutionMode:   ModeTime,
		DailySpendLimit: decimal.NewFromInt(10),
		TodaySpend:      decimal.Zero,
	}
}

func TestRecordCompletedCall_AccumulatesAndStopsAtLimit(t *testing.T) {
	st := running("u1")
	st.TodaySpend = decimal.RequireFromString("9.50")
	svc := NewService(NewMemoryRepo(st))

	res, err := svc.RecordCompletedCall(context.Background(), "u1", decimal.RequireFromString("0.40"))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.SpendLimitHit || res.State.Status != StatusRunning || res.State.CallsMadeToday != 1 {
		t.Fatalf("unexpected result below limit: %+v", res)
	}

	res, err = svc.RecordCompletedCall(context.Background(), "u1", decimal.RequireFromString("0.10"))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !res.SpendLimitHit || !res.Stopped {
		t.Fatalf("expected limit hit at exactly 10.00: %+v", res)
	}
	if res.State.Status != StatusStopped || res.State.StopReason != StopSpendLimit {
		t.Fatalf("expected stopped for spend_limit, got %+v", res.State)
	}
}

func TestRecordCompletedCall_UnlimitedWhenLimitNotPositive(t *testing.T) {
	st := running("u1")
	st.DailySpendLimit = decimal.Zero
	svc := NewService(NewMemoryRepo(st))

	res, err := svc.RecordCompletedCall(context.Background(), "u1", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.SpendLimitHit || res.State.Status != StatusRunning {
		t.Fatalf("zero limit must be unlimited: %+v", res)
	}
}

func TestRecordCompletedCall_ZeroCostStillCountsDial(t *testing.T) {
	svc := NewService(NewMemoryRepo(running("u1")))
	res, err := svc.RecordCompletedCall(context.Background(), "u1", decimal.Zero)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.State.CallsMadeToday != 1 || !res.State.TodaySpend.IsZero() {
		t.Fatalf("expected one dial and no spend, got %+v", res.State)
	}
}

func TestStartStop(t *testing.T) {
	st := running("u1")
	st.Status = StatusStopped
	st.StopReason = StopManual
	svc := NewService(NewMemoryRepo(st))

	got, err := svc.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.Status != StatusRunning || got.StopReason != StopNone {
		t.Fatalf("expected running with no reason, got %+v", got)
	}
	if _, err := svc.Start(context.Background(), "u1"); err != nil {
		t.Fatalf("start twice should be a no-op, got %v", err)
	}

	got, err = svc.Stop(context.Background(), "u1", StopManual)
	if err != nil || got.Status != StatusStopped {
		t.Fatalf("stop: %+v %v", got, err)
	}
	if _, err := svc.Stop(context.Background(), "u1", StopNone); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument without reason, got %v", err)
	}
}

func TestStart_RefusesWhenLimitAlreadyReached(t *testing.T) {
	st := running("u1")
	st.Status = StatusStopped
	st.TodaySpend = decimal.NewFromInt(10)
	svc := NewService(NewMemoryRepo(st))

	if _, err := svc.Start(context.Background(), "u1"); !errors.Is(err, ErrSpendLimitReached) {
		t.Fatalf("expected ErrSpendLimitReached, got %v", err)
	}
}

func TestContinue_NotRunningIsIdle(t *testing.T) {
	st := running("u1")
	st.Status = StatusStopped
	d := &recordingDispatcher{}
	o := NewOrchestrator(NewMemoryRepo(st), d, nil)

	dec, err := o.Continue(context.Background(), "u1")
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if dec.Action != ActionIdle || len(d.users) != 0 {
		t.Fatalf("expected idle without dispatch, got %+v", dec)
	}
}

func TestContinue_LeadsModeStopsAtTarget(t *testing.T) {
	st := running("u1")
	st.ExecutionMode = ModeLeads
	st.TargetLeadCount = 5
	st.CallsMadeToday = 5
	repo := NewMemoryRepo(st)
	d := &recordingDispatcher{}
	o := NewOrchestrator(repo, d, nil)

	dec, err := o.Continue(context.Background(), "u1")
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if dec.Action != ActionStopped || dec.Reason != StopTargetReached {
		t.Fatalf("expected stopped at target, got %+v", dec)
	}
	stored, _ := repo.Get(context.Background(), "u1")
	if stored.Status != StatusStopped || len(d.users) != 0 {
		t.Fatalf("expected stored stop and no dispatch")
	}
}

func TestContinue_DispatchesBelowTarget(t *testing.T) {
	st := running("u1")
	st.ExecutionMode = ModeLeads
	st.TargetLeadCount = 5
	st.CallsMadeToday = 4
	d := &recordingDispatcher{}
	o := NewOrchestrator(NewMemoryRepo(st), d, nil)

	dec, err := o.Continue(context.Background(), "u1")
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if dec.Action != ActionDispatched || len(d.users) != 1 || d.users[0] != "u1" {
		t.Fatalf("expected one dispatch, got %+v %v", dec, d.users)
	}
}

func TestContinue_ZeroTargetIsUnbounded(t *testing.T) {
	st := running("u1")
	st.ExecutionMode = ModeLeads
	st.CallsMadeToday = 400
	d := &recordingDispatcher{refuse: true}
	o := NewOrchestrator(NewMemoryRepo(st), d, nil)

	dec, err := o.Continue(context.Background(), "u1")
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if dec.Action != ActionDropped {
		t.Fatalf("expected dropped when queue refuses, got %+v", dec)
	}
}

func TestContinue_MissingState(t *testing.T) {
	o := NewOrchestrator(NewMemoryRepo(), &recordingDispatcher{}, nil)
	if _, err := o.Continue(context.Background(), "ghost"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
