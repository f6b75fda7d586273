package campaign

import (
	"context"
	"log/slog"
)

// Dispatcher enqueues a next-call trigger for a user. It must not block.
type Dispatcher interface {
	Dispatch(userID string) bool
}

type Action string

const (
	// ActionIdle means the campaign was not running; nothing to do.
	ActionIdle Action = "idle"
	// ActionStopped means this decision flipped the campaign to stopped.
	ActionStopped Action = "stopped"
	ActionDispatched Action = "dispatched"
	// ActionDropped means the trigger queue refused the job.
	ActionDropped Action = "dropped"
)

type Decision struct {
	Action Action
	Reason StopReason
	State  State
}

// Orchestrator decides whether the next lead gets dialed.
// It must run after the session's counters were written.
type Orchestrator struct {
	repo       Repository
	dispatcher Dispatcher
	log        *slog.Logger
	svc        *Service
}

func NewOrchestrator(repo Repository, dispatcher Dispatcher, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{repo: repo, dispatcher: dispatcher, log: log, svc: NewService(repo)}
}

func (o *Orchestrator) Continue(ctx context.Context, userID string) (Decision, error) {
	st, err := o.repo.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if st.Status != StatusRunning {
		return Decision{Action: ActionIdle, Reason: st.StopReason, State: st}, nil
	}

	if st.TargetReached() {
		stopped, err := o.svc.Stop(ctx, userID, StopTargetReached)
		if err != nil {
			return Decision{}, err
		}
		o.log.Info("campaign target reached",
			"user_id", userID,
			"calls_made_today", stopped.CallsMadeToday,
			"target_lead_count", stopped.TargetLeadCount,
		)
		return Decision{Action: ActionStopped, Reason: StopTargetReached, State: stopped}, nil
	}

	if o.dispatcher == nil || !o.dispatcher.Dispatch(userID) {
		o.log.Warn("next-call dispatch dropped", "user_id", userID)
		return Decision{Action: ActionDropped, State: st}, nil
	}
	return Decision{Action: ActionDispatched, State: st}, nil
}
