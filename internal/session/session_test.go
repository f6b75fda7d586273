package session

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		wasDoubleDial, answered bool
		want                    State
	}{
		{false, false, AwaitingRedial},
		{false, true, Complete},
		{true, false, Complete},
		{true, true, Complete},
	}
	for _, tc := range cases {
		if got := Resolve(tc.wasDoubleDial, tc.answered); got != tc.want {
			t.Fatalf("Resolve(%v,%v) = %s, want %s", tc.wasDoubleDial, tc.answered, got, tc.want)
		}
	}
}

func TestDoubleDialSequenceCompletesOnce(t *testing.T) {
	completions := 0
	first := Resolve(false, false)
	if first == Complete {
		completions++
	}
	second := Resolve(true, false)
	if second == Complete {
		completions++
	}
	if completions != 1 {
		t.Fatalf("expected exactly one completion, got %d", completions)
	}
}

func TestRedialTagsSecondLeg(t *testing.T) {
	req := Redial("agent", "+15550001111", "+15552223333", "u1", "l1")
	if !req.Metadata.WasDoubleDial {
		t.Fatalf("expected was_double_dial=true")
	}
	if req.Metadata.UserID != "u1" || req.Metadata.LeadID != "l1" || req.ToNumber != "+15552223333" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestStateString(t *testing.T) {
	if Complete.String() != "complete" || State(42).String() != "unknown" {
		t.Fatalf("unexpected names")
	}
}
