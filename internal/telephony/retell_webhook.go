package telephony

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EventCallAnalyzed is the only webhook event that carries a finished, analyzed call.
// call_started and call_ended arrive earlier for the same call and are acknowledged only.
const EventCallAnalyzed = "call_analyzed"

// WebhookEvent is the envelope posted by the voice agent vendor.
type WebhookEvent struct {
	Event string `json:"event"`
	Call  *Call  `json:"call"`
}

// Call is the subset of the vendor call object the outcome pipeline reads.
type Call struct {
	CallID              string   `json:"call_id"`
	AgentID             string   `json:"agent_id,omitempty"`
	CallStatus          string   `json:"call_status"`
	FromNumber          string   `json:"from_number,omitempty"`
	ToNumber            string   `json:"to_number,omitempty"`
	StartTimestamp      int64    `json:"start_timestamp,omitempty"`
	EndTimestamp        int64    `json:"end_timestamp,omitempty"`
	DurationMs          int64    `json:"duration_ms,omitempty"`
	DisconnectionReason string   `json:"disconnection_reason,omitempty"`
	Metadata            Metadata `json:"metadata"`
	Analysis            Analysis `json:"call_analysis"`
}

// Metadata is echoed back by the vendor exactly as it was sent when the call was placed.
type Metadata struct {
	UserID        string `json:"user_id"`
	LeadID        string `json:"lead_id"`
	WasDoubleDial Flag   `json:"was_double_dial"`
}

type Analysis struct {
	InVoicemail   Flag         `json:"in_voicemail"`
	CallSummary   string       `json:"call_summary,omitempty"`
	UserSentiment string       `json:"user_sentiment,omitempty"`
	Custom        OutcomeFlags `json:"custom_analysis_data"`
}

// OutcomeFlags are the post-call analysis booleans configured on the agent.
type OutcomeFlags struct {
	Booked        Flag `json:"BOOKED"`
	NotInterested Flag `json:"NOT_INTERESTED"`
	Callback      Flag `json:"CALLBACK"`
	LiveTransfer  Flag `json:"LIVE_TRANSFER"`
}

// Any reports whether at least one outcome flag is set.
func (f OutcomeFlags) Any() bool {
	return bool(f.Booked || f.NotInterested || f.Callback || f.LiveTransfer)
}

// Duration returns the call length in milliseconds, preferring the vendor's own figure.
func (c Call) Duration() int64 {
	if c.DurationMs > 0 {
		return c.DurationMs
	}
	if c.StartTimestamp > 0 && c.EndTimestamp > c.StartTimestamp {
		return c.EndTimestamp - c.StartTimestamp
	}
	return 0
}

// Flag decodes JSON booleans that the vendor may send as bool, string or number.
// Unknown shapes decode as false rather than failing the whole payload.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	switch b[0] {
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("telephony: invalid flag %s: %w", b, err)
		}
		*f = Flag(v)
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("telephony: invalid flag %s: %w", b, err)
		}
		*f = Flag(truthy(s))
	default:
		n, err := strconv.ParseFloat(string(b), 64)
		*f = Flag(err == nil && n != 0)
	}
	return nil
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true
	default:
		return false
	}
}
