package campaign

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("campaign: control state not found")
	ErrInvalidArgument    = errors.New("campaign: invalid argument")
	ErrSpendLimitReached  = errors.New("campaign: daily spend limit reached")
	ErrTargetReached      = errors.New("campaign: lead target reached")
	errAlreadyInRequested = errors.New("campaign: already in requested state")
)

// Service owns the daily counters and the running/stopped switch.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// SpendResult is the state after one completed session was counted.
type SpendResult struct {
	State State
	// SpendLimitHit is set when today's spend meets the limit; no continuation may follow.
	SpendLimitHit bool
	// Stopped is set when this call flipped the campaign to stopped.
	Stopped bool
}

func (s *Service) Get(ctx context.Context, userID string) (State, error) {
	if userID == "" {
		return State{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, userID)
}

// RecordCompletedCall counts one completed dial session and adds its cost to today's spend.
// Unanswered sessions still consume a dial slot and arrive here with zero cost.
func (s *Service) RecordCompletedCall(ctx context.Context, userID string, cost decimal.Decimal) (SpendResult, error) {
	if userID == "" || cost.IsNegative() {
		return SpendResult{}, ErrInvalidArgument
	}
	now := s.clock().UTC()

	var stopped bool
	st, err := s.repo.Update(ctx, userID, func(cur State) (State, error) {
		next := cur
		next.CallsMadeToday++
		next.TodaySpend = next.TodaySpend.Add(cost)
		next.UpdatedAt = now
		if next.SpendLimitReached() && next.Status == StatusRunning {
			next.Status = StatusStopped
			next.StopReason = StopSpendLimit
			stopped = true
		}
		return next, nil
	})
	if err != nil {
		return SpendResult{}, err
	}
	return SpendResult{State: st, SpendLimitHit: st.SpendLimitReached(), Stopped: stopped}, nil
}

// Start is the explicit restart that resumes a stopped campaign.
func (s *Service) Start(ctx context.Context, userID string) (State, error) {
	if userID == "" {
		return State{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	st, err := s.repo.Update(ctx, userID, func(cur State) (State, error) {
		switch {
		case cur.SpendLimitReached():
			return cur, ErrSpendLimitReached
		case cur.TargetReached():
			return cur, ErrTargetReached
		case cur.Status == StatusRunning:
			return cur, errAlreadyInRequested
		}
		cur.Status = StatusRunning
		cur.StopReason = StopNone
		cur.UpdatedAt = now
		return cur, nil
	})
	if errors.Is(err, errAlreadyInRequested) {
		return s.repo.Get(ctx, userID)
	}
	return st, err
}

// Stop halts dialing. Stopping a stopped campaign keeps its original reason.
func (s *Service) Stop(ctx context.Context, userID string, reason StopReason) (State, error) {
	if userID == "" || reason == StopNone {
		return State{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	st, err := s.repo.Update(ctx, userID, func(cur State) (State, error) {
		if cur.Status == StatusStopped {
			return cur, errAlreadyInRequested
		}
		cur.Status = StatusStopped
		cur.StopReason = reason
		cur.UpdatedAt = now
		return cur, nil
	})
	if errors.Is(err, errAlreadyInRequested) {
		return s.repo.Get(ctx, userID)
	}
	return st, err
}
