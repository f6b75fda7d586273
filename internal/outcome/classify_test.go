package outcome

import (
	"encoding/json"
	"testing"

	"sterling-dialer/internal/telephony"
)

func decodeCall(t *testing.T, raw string) telephony.Call {
	t.Helper()
	var c telephony.Call
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return c
}

func TestClassify_VoicemailWithoutFlagsIsUnanswered(t *testing.T) {
	c := decodeCall(t, `{"call_id":"c1","call_status":"ended","metadata":{"user_id":"u1","lead_id":"l1"},
		"call_analysis":{"in_voicemail":true,"custom_analysis_data":{}}}`)

	got := Classify(c)
	if got.Answered {
		t.Fatalf("expected unanswered")
	}
	if got.Outcome != NoAnswer || got.Disposition() != "no_answer" {
		t.Fatalf("unexpected outcome %q / %q", got.Outcome, got.Disposition())
	}
	if got.UserID != "u1" || got.LeadID != "l1" {
		t.Fatalf("metadata not carried: %+v", got)
	}
}

func TestClassify_FlagOverridesVoicemail(t *testing.T) {
	c := decodeCall(t, `{"call_id":"c1","metadata":{"user_id":"u1","lead_id":"l1"},
		"call_analysis":{"in_voicemail":true,"custom_analysis_data":{"LIVE_TRANSFER":true}}}`)

	got := Classify(c)
	if !got.Answered || got.Outcome != LiveTransfer {
		t.Fatalf("expected answered live transfer, got %+v", got)
	}
	if !got.InVoicemail {
		t.Fatalf("expected raw voicemail flag preserved")
	}
}

func TestClassify_Priority(t *testing.T) {
	cases := []struct {
		name  string
		flags telephony.OutcomeFlags
		want  Outcome
	}{
		{"all set", telephony.OutcomeFlags{Booked: true, NotInterested: true, Callback: true, LiveTransfer: true}, NotInterested},
		{"booked beats transfer", telephony.OutcomeFlags{Booked: true, LiveTransfer: true, Callback: true}, Booked},
		{"transfer beats callback", telephony.OutcomeFlags{LiveTransfer: true, Callback: true}, LiveTransfer},
		{"callback only", telephony.OutcomeFlags{Callback: true}, Callback},
		{"none", telephony.OutcomeFlags{}, Unclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(telephony.Call{Analysis: telephony.Analysis{Custom: tc.flags}})
			if !got.Answered {
				t.Fatalf("expected answered")
			}
			if got.Outcome != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got.Outcome)
			}
		})
	}
}

func TestClassify_HangupAttribution(t *testing.T) {
	cases := map[string]HangupBy{
		"agent_hangup":   HangupAI,
		"user_hangup":    HangupUser,
		"dial_no_answer": HangupUnknown,
		"":               HangupUnknown,
	}
	for reason, want := range cases {
		got := Classify(telephony.Call{DisconnectionReason: reason})
		if got.HangupBy != want {
			t.Fatalf("%q: expected %q, got %q", reason, want, got.HangupBy)
		}
	}
}

func TestClassify_DoubleDialAndDuration(t *testing.T) {
	c := decodeCall(t, `{"call_id":"c2","duration_ms":180000,
		"metadata":{"user_id":"u1","lead_id":"l1","was_double_dial":true},
		"call_analysis":{"in_voicemail":false,"custom_analysis_data":{"BOOKED":true}}}`)

	got := Classify(c)
	if !got.WasDoubleDial {
		t.Fatalf("expected double dial flag")
	}
	if got.DurationMs != 180000 {
		t.Fatalf("expected 180000ms, got %d", got.DurationMs)
	}
	if got.Outcome != Booked || got.Disposition() != "appointment_booked" {
		t.Fatalf("unexpected outcome %+v", got)
	}
}
