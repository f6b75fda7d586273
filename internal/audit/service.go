package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Audit is internal-only. Callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.UserID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogAdminAction records an action taken through the control API (including hidden roles).
func (s *Service) LogAdminAction(ctx context.Context, userID, actorUserID, actorRole, ip, message string) error {
	return s.Append(ctx, Event{
		UserID:      userID,
		Type:        EventTypeAdminAction,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     message,
	})
}

// LogCampaignStarted records a campaign start requested by an operator.
func (s *Service) LogCampaignStarted(ctx context.Context, userID, actorUserID, actorRole, ip string) error {
	return s.Append(ctx, Event{
		UserID:      userID,
		Type:        EventTypeCampaignStarted,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     "campaign started",
	})
}

// LogCampaignStopped records why a campaign stopped. callID is set when a webhook caused it.
func (s *Service) LogCampaignStopped(ctx context.Context, userID, reason, callID string) error {
	return s.Append(ctx, Event{
		UserID:   userID,
		Type:     EventTypeCampaignStopped,
		CallID:   callID,
		Message:  "campaign stopped: " + reason,
		Metadata: metadata(map[string]any{"reason": reason}),
	})
}

// LogAutoRefill records a refill attempt. A non-nil cause records a failure.
func (s *Service) LogAutoRefill(ctx context.Context, userID, callID, amount, receiptID string, cause error) error {
	e := Event{
		UserID:  userID,
		Type:    EventTypeAutoRefill,
		CallID:  callID,
		Message: "auto refill charged",
	}
	md := map[string]any{"amount": amount, "receipt_id": receiptID}
	if cause != nil {
		e.Type = EventTypeAutoRefillFailed
		e.Message = "auto refill failed"
		md["error"] = cause.Error()
	}
	e.Metadata = metadata(md)
	return s.Append(ctx, e)
}

// LogDeadLead records a lead crossing the dead-lead threshold.
func (s *Service) LogDeadLead(ctx context.Context, userID, leadID, callID string, attempts int) error {
	return s.Append(ctx, Event{
		UserID:   userID,
		Type:     EventTypeDeadLead,
		LeadID:   leadID,
		CallID:   callID,
		Message:  "lead marked dead",
		Metadata: metadata(map[string]any{"call_attempts_today": attempts}),
	})
}

func metadata(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
