package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestService_AppendRequiresUserAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeAdminAction}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{UserID: "u"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogAdminAction(context.Background(), "u", "admin", "super_admin", "1.2.3.4", "stopped campaign"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" || evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected ip, id and timestamp captured: %+v", evs[0])
	}
	if evs[0].Type != EventTypeAdminAction {
		t.Fatalf("expected admin_action")
	}
}

func TestService_SystemEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.LogCampaignStopped(ctx, "u", "spend_limit", "call_1")
	_ = svc.LogAutoRefill(ctx, "u", "call_1", "25", "pi_1", nil)
	_ = svc.LogAutoRefill(ctx, "u", "call_2", "25", "", errors.New("card declined"))
	_ = svc.LogDeadLead(ctx, "u", "lead_1", "call_1", 20)

	evs := repo.Events()
	want := []EventType{EventTypeCampaignStopped, EventTypeAutoRefill, EventTypeAutoRefillFailed, EventTypeDeadLead}
	if len(evs) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(evs))
	}
	for i, w := range want {
		if evs[i].Type != w {
			t.Fatalf("event %d: got %s want %s", i, evs[i].Type, w)
		}
	}
	if !strings.Contains(evs[2].Metadata, "card declined") {
		t.Fatalf("expected failure cause in metadata: %s", evs[2].Metadata)
	}
	if evs[3].LeadID != "lead_1" {
		t.Fatalf("expected lead id on dead_lead event")
	}
}
