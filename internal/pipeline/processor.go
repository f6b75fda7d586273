package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sterling-dialer/internal/appointments"
	"sterling-dialer/internal/audit"
	"sterling-dialer/internal/billing"
	"sterling-dialer/internal/calls"
	"sterling-dialer/internal/campaign"
	"sterling-dialer/internal/leads"
	"sterling-dialer/internal/outcome"
	"sterling-dialer/internal/pricing"
	"sterling-dialer/internal/session"
	"sterling-dialer/internal/telephony"
	"sterling-dialer/internal/usage"
	"sterling-dialer/internal/users"
	"sterling-dialer/internal/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrMalformed means the payload lacks what processing needs; nothing was written.
	ErrMalformed = errors.New("pipeline: malformed webhook payload")
	// ErrNotFound means a referenced user, lead, wallet or campaign does not exist.
	ErrNotFound = errors.New("pipeline: referenced entity not found")

	errAlreadyRecorded = errors.New("pipeline: call already recorded")
)

// Result is the webhook response body.
type Result struct {
	Received          bool            `json:"received,omitempty"`
	Success           bool            `json:"success"`
	Skipped           bool            `json:"skipped,omitempty"`
	Duplicate         bool            `json:"duplicate,omitempty"`
	DoubleDial        bool            `json:"doubleDial,omitempty"`
	RedialPlaced      bool            `json:"redialPlaced,omitempty"`
	Outcome           outcome.Outcome `json:"outcome,omitempty"`
	Cost              decimal.Decimal `json:"cost"`
	AIStopped         bool            `json:"aiStopped,omitempty"`
	NextCallTriggered bool            `json:"nextCallTriggered,omitempty"`
}

// Deps are the collaborators a Processor drives. Charger, Placer, Appointments,
// Usage and Audit may be nil; their steps are then skipped.
type Deps struct {
	Users        users.Repository
	Leads        *leads.Ledger
	Calls        calls.Repository
	Pricing      *pricing.Service
	Wallet       *wallet.Service
	Charger      billing.Charger
	Campaign     *campaign.Service
	Orchestrator *campaign.Orchestrator
	Usage        *usage.Recorder
	Appointments *appointments.Reconciler
	Placer       telephony.CallPlacer
	Audit        *audit.Service

	Locker  Locker
	Deduper Deduper
	// Tx groups a session's ledger, wallet, campaign and record writes.
	Tx TxRunner

	// Location is the fallback timezone for users without one.
	Location *time.Location
	Timeout  time.Duration
	Log      *slog.Logger
}

// Processor turns one analyzed-call webhook into lead, money, revenue and
// continuation updates, applying them once per completed dial session.
type Processor struct {
	d     Deps
	clock func() time.Time
}

func NewProcessor(d Deps) *Processor {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Locker == nil {
		d.Locker = NewMemoryLocker()
	}
	if d.Deduper == nil {
		d.Deduper = NewMemoryDeduper()
	}
	if d.Tx == nil {
		d.Tx = directTx{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Timeout <= 0 {
		d.Timeout = 45 * time.Second
	}
	return &Processor{d: d, clock: time.Now}
}

// Process handles one webhook event. Events other than call_analyzed are acknowledged
// and skipped. The work runs to completion even if ctx is canceled.
func (p *Processor) Process(ctx context.Context, evt telephony.WebhookEvent) (Result, error) {
	if evt.Event != telephony.EventCallAnalyzed {
		return Result{Received: true, Success: true, Skipped: true, Cost: decimal.Zero}, nil
	}
	if evt.Call == nil || evt.Call.Metadata.UserID == "" || evt.Call.Metadata.LeadID == "" {
		return Result{}, ErrMalformed
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.d.Timeout)
	defer cancel()

	call := *evt.Call
	log := p.d.Log.With(
		"call_id", call.CallID,
		"user_id", call.Metadata.UserID,
		"lead_id", call.Metadata.LeadID,
	)

	if call.CallID != "" {
		first, err := p.d.Deduper.Claim(ctx, call.CallID)
		if err != nil {
			return Result{}, fmt.Errorf("pipeline: claim %s: %w", call.CallID, err)
		}
		if !first {
			log.Info("duplicate webhook delivery ignored")
			return Result{Success: true, Duplicate: true, Cost: decimal.Zero}, nil
		}
	}

	res, err := p.process(ctx, call, log)
	if err != nil && call.CallID != "" {
		if rerr := p.d.Deduper.Release(ctx, call.CallID); rerr != nil {
			log.Warn("release dedupe claim failed", "err", rerr)
		}
	}
	return res, err
}

// completed carries what the critical section wrote.
type completed struct {
	lead      leads.Lead
	wasDead   bool
	spend     campaign.SpendResult
	charge    wallet.ChargeResult
	duplicate bool
}

func (p *Processor) process(ctx context.Context, call telephony.Call, log *slog.Logger) (Result, error) {
	cls := outcome.Classify(call)

	profile, err := p.d.Users.Get(ctx, cls.UserID)
	if err != nil {
		return Result{}, notFound(err, log, "user profile")
	}
	lead, err := p.d.Leads.Get(ctx, cls.LeadID)
	if err == nil && lead.UserID != "" && lead.UserID != cls.UserID {
		err = leads.ErrNotFound
	}
	if err != nil {
		return Result{}, notFound(err, log, "lead")
	}

	if session.Resolve(cls.WasDoubleDial, cls.Answered) == session.AwaitingRedial {
		return p.redial(ctx, profile, lead, cls, log), nil
	}

	cost, err := p.d.Pricing.CallCost(ctx, profile.Tier, cls.DurationMs, cls.Answered)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: price call: %w", err)
	}
	if _, err := p.d.Campaign.Get(ctx, cls.UserID); err != nil {
		return Result{}, notFound(err, log, "campaign state")
	}
	if cost.Amount.IsPositive() {
		if _, err := p.d.Wallet.Balance(ctx, cls.UserID); err != nil {
			return Result{}, notFound(err, log, "wallet")
		}
	}

	providerID := call.CallID
	if providerID == "" {
		providerID = "local-" + uuid.NewString()
		log.Warn("call_analyzed without call_id; record gets a local id", "provider_call_id", providerID)
	}

	done, err := p.commit(ctx, profile, cls, call, providerID, cost.Amount, log)
	if err != nil {
		return Result{}, err
	}
	if done.duplicate {
		log.Info("call record already exists; replay ignored")
		return Result{Success: true, Duplicate: true, Outcome: outcomeOf(cls), Cost: cost.Amount}, nil
	}

	res := Result{Success: true, Outcome: outcomeOf(cls), Cost: cost.Amount}

	if done.charge.NeedsRefill {
		p.autoRefill(ctx, cls.UserID, providerID, log)
	}
	if done.lead.Status == leads.StatusDeadLead && !done.wasDead {
		log.Info("lead retired as dead", "total_calls_made", done.lead.TotalCallsMade)
		p.auditErr(log, p.audit(func(a *audit.Service) error {
			return a.LogDeadLead(ctx, cls.UserID, cls.LeadID, providerID, done.lead.CallAttemptsToday)
		}))
	}
	if done.spend.Stopped {
		log.Info("daily spend limit reached; campaign stopped",
			"today_spend", done.spend.State.TodaySpend.String(),
			"daily_spend_limit", done.spend.State.DailySpendLimit.String(),
		)
		p.auditErr(log, p.audit(func(a *audit.Service) error {
			return a.LogCampaignStopped(ctx, cls.UserID, string(campaign.StopSpendLimit), providerID)
		}))
	}

	if cls.Answered && cls.Outcome == outcome.Booked {
		p.reconcile(ctx, profile, done.lead, providerID, log)
	}

	if done.spend.SpendLimitHit {
		res.AIStopped = true
		return res, nil
	}
	if p.d.Orchestrator == nil {
		return res, nil
	}
	dec, err := p.d.Orchestrator.Continue(ctx, cls.UserID)
	if err != nil {
		log.Error("continuation failed", "err", err)
		return res, nil
	}
	switch dec.Action {
	case campaign.ActionStopped:
		res.AIStopped = true
		p.auditErr(log, p.audit(func(a *audit.Service) error {
			return a.LogCampaignStopped(ctx, cls.UserID, string(dec.Reason), providerID)
		}))
	case campaign.ActionIdle:
		res.AIStopped = true
	case campaign.ActionDispatched:
		res.NextCallTriggered = true
	}
	return res, nil
}

// commit applies the per-session writes under the user's lock, in one TxRunner unit.
// The call record is written last: it marks the session done, so a failure before
// it leaves the session retryable. The debit is keyed by call id and replays cleanly.
func (p *Processor) commit(ctx context.Context, profile users.Profile, cls outcome.Classification, call telephony.Call, providerID string, cost decimal.Decimal, log *slog.Logger) (completed, error) {
	unlock, err := p.d.Locker.Lock(ctx, cls.UserID)
	if err != nil {
		return completed{}, fmt.Errorf("pipeline: lock user %s: %w", cls.UserID, err)
	}
	defer unlock()

	var out completed
	if exists, err := p.d.Calls.Exists(ctx, providerID); err != nil {
		return completed{}, fmt.Errorf("pipeline: check call record: %w", err)
	} else if exists {
		out.duplicate = true
		return out, nil
	}

	now := p.clock().UTC()
	err = p.d.Tx.InTx(ctx, func(ctx context.Context) error {
		before, err := p.d.Leads.Get(ctx, cls.LeadID)
		if err != nil {
			return fmt.Errorf("pipeline: reload lead: %w", err)
		}
		out.wasDead = before.Status == leads.StatusDeadLead

		if cost.IsPositive() {
			out.charge, err = p.d.Wallet.ChargeCall(ctx, cls.UserID, providerID, cost)
			if err != nil {
				return fmt.Errorf("pipeline: debit balance: %w", err)
			}
		}

		out.lead, err = p.d.Leads.Complete(ctx, cls.LeadID, leads.Result{
			Answered: cls.Answered,
			Status:   leads.Status(cls.Outcome),
			At:       now,
		})
		if err != nil {
			return fmt.Errorf("pipeline: lead ledger: %w", err)
		}

		out.spend, err = p.d.Campaign.RecordCompletedCall(ctx, cls.UserID, cost)
		if err != nil {
			return fmt.Errorf("pipeline: campaign counters: %w", err)
		}

		created, err := p.d.Calls.Create(ctx, calls.Record{
			ID:              uuid.NewString(),
			ProviderCallID:  providerID,
			UserID:          cls.UserID,
			LeadID:          cls.LeadID,
			Cost:            cost,
			DurationSeconds: int(cls.DurationMs / 1000),
			Outcome:         string(cls.Outcome),
			Disposition:     cls.Disposition(),
			HangupBy:        string(cls.HangupBy),
			Answered:        cls.Answered,
			InVoicemail:     cls.InVoicemail,
			WasDoubleDial:   cls.WasDoubleDial,
			Summary:         call.Analysis.CallSummary,
			CreatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("pipeline: create call record: %w", err)
		}
		if !created {
			return errAlreadyRecorded
		}
		return nil
	})
	switch {
	case errors.Is(err, errAlreadyRecorded):
		log.Warn("call record written concurrently; session rolled back")
		return completed{duplicate: true}, nil
	case err != nil:
		return completed{}, err
	}

	if p.d.Usage != nil {
		if _, err := p.d.Usage.Record(ctx, cls.UserID, cost, profile.MonthlyRetainer, profile.Location(p.d.Location)); err != nil {
			log.Error("usage record failed", "err", err)
		}
	}
	return out, nil
}

// redial places the second leg of a missed first attempt. Nothing is counted.
func (p *Processor) redial(ctx context.Context, profile users.Profile, lead leads.Lead, cls outcome.Classification, log *slog.Logger) Result {
	res := Result{Success: true, DoubleDial: true, Cost: decimal.Zero}
	if p.d.Placer == nil || !profile.CanRedial() || lead.Phone == "" {
		log.Warn("re-dial skipped: placer or profile dialing fields missing")
		return res
	}
	placed, err := p.d.Placer.PlaceCall(ctx, session.Redial(profile.AgentID, profile.FromNumber, lead.Phone, cls.UserID, cls.LeadID))
	if err != nil {
		log.Warn("re-dial failed; session left awaiting re-dial", "err", err)
		return res
	}
	log.Info("re-dial placed", "redial_call_id", placed.CallID)
	res.RedialPlaced = true
	return res
}

func (p *Processor) autoRefill(ctx context.Context, userID, callID string, log *slog.Logger) {
	if p.d.Charger == nil {
		log.Warn("auto-refill needed but no payment processor configured")
		return
	}
	out, err := p.d.Wallet.AutoRefill(ctx, userID, callID, p.d.Charger)
	if errors.Is(err, wallet.ErrRefillNotNeeded) {
		return
	}
	if err != nil {
		log.Error("auto-refill failed", "err", err)
		p.auditErr(log, p.audit(func(a *audit.Service) error {
			return a.LogAutoRefill(ctx, userID, callID, "", out.Receipt.ID, err)
		}))
		return
	}
	log.Info("auto-refill credited", "amount", out.Entry.Amount.String(), "balance", out.Account.Balance.String())
	p.auditErr(log, p.audit(func(a *audit.Service) error {
		return a.LogAutoRefill(ctx, userID, callID, out.Entry.Amount.String(), out.Receipt.ID, nil)
	}))
}

func (p *Processor) reconcile(ctx context.Context, profile users.Profile, lead leads.Lead, callID string, log *slog.Logger) {
	if p.d.Appointments == nil {
		return
	}
	appt, created, err := p.d.Appointments.Reconcile(ctx, appointments.Request{
		UserID:    profile.UserID,
		LeadID:    lead.ID,
		CallID:    callID,
		LeadName:  lead.Name,
		LeadPhone: lead.Phone,
		APIKey:    profile.SchedulingAPIKey,
		Location:  profile.Location(p.d.Location),
	})
	if err != nil {
		log.Error("appointment reconciliation failed", "err", err)
		return
	}
	if created {
		log.Info("appointment created",
			"appointment_id", appt.ID,
			"matched_by", string(appt.MatchedBy),
			"needs_confirmation", appt.NeedsConfirmation,
		)
	}
}

func (p *Processor) audit(fn func(*audit.Service) error) error {
	if p.d.Audit == nil {
		return nil
	}
	return fn(p.d.Audit)
}

func (p *Processor) auditErr(log *slog.Logger, err error) {
	if err != nil {
		log.Warn("audit append failed", "err", err)
	}
}

func outcomeOf(c outcome.Classification) outcome.Outcome {
	if !c.Answered {
		return outcome.NoAnswer
	}
	return c.Outcome
}

func notFound(err error, log *slog.Logger, what string) error {
	switch {
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, leads.ErrNotFound),
		errors.Is(err, wallet.ErrNotFound),
		errors.Is(err, campaign.ErrNotFound):
		log.Error(what+" not found; check outbound call metadata", "err", err)
		return fmt.Errorf("%w: %s: %v", ErrNotFound, what, err)
	default:
		return fmt.Errorf("pipeline: load %s: %w", what, err)
	}
}
