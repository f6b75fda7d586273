package outcome

import "sterling-dialer/internal/telephony"

// Outcome is the business result of a call. Values double as lead statuses.
type Outcome string

const (
	NotInterested Outcome = "not_interested"
	Booked        Outcome = "appointment_booked"
	LiveTransfer  Outcome = "live_transfer"
	Callback      Outcome = "callback_later"
	Unclassified  Outcome = "unclassified"
	NoAnswer      Outcome = "no_answer"
)

type HangupBy string

const (
	HangupAI      HangupBy = "ai"
	HangupUser    HangupBy = "user"
	HangupUnknown HangupBy = "unknown"
)

// Classification is the pure result of reading one analyzed call.
type Classification struct {
	CallID        string
	UserID        string
	LeadID        string
	Answered      bool
	InVoicemail   bool
	WasDoubleDial bool
	Outcome       Outcome
	HangupBy      HangupBy
	DurationMs    int64
}

// Disposition is the label stored on the call record.
func (c Classification) Disposition() string {
	if !c.Answered {
		return string(NoAnswer)
	}
	return string(c.Outcome)
}

type rule struct {
	set     func(telephony.OutcomeFlags) telephony.Flag
	outcome Outcome
}

// priority is evaluated top to bottom; the first set flag wins.
var priority = []rule{
	{func(f telephony.OutcomeFlags) telephony.Flag { return f.NotInterested }, NotInterested},
	{func(f telephony.OutcomeFlags) telephony.Flag { return f.Booked }, Booked},
	{func(f telephony.OutcomeFlags) telephony.Flag { return f.LiveTransfer }, LiveTransfer},
	{func(f telephony.OutcomeFlags) telephony.Flag { return f.Callback }, Callback},
}

// Classify derives answered state, outcome and hang-up attribution from a call.
// A set outcome flag counts as a pickup even when the voicemail detector fired.
func Classify(call telephony.Call) Classification {
	flags := call.Analysis.Custom
	voicemail := bool(call.Analysis.InVoicemail)
	answered := !voicemail || flags.Any()

	out := Classification{
		CallID:        call.CallID,
		UserID:        call.Metadata.UserID,
		LeadID:        call.Metadata.LeadID,
		Answered:      answered,
		InVoicemail:   voicemail,
		WasDoubleDial: bool(call.Metadata.WasDoubleDial),
		Outcome:       NoAnswer,
		HangupBy:      attributeHangup(call.DisconnectionReason),
		DurationMs:    call.Duration(),
	}
	if !answered {
		return out
	}

	out.Outcome = Unclassified
	for _, r := range priority {
		if r.set(flags) {
			out.Outcome = r.outcome
			break
		}
	}
	return out
}

func attributeHangup(reason string) HangupBy {
	switch reason {
	case "agent_hangup":
		return HangupAI
	case "user_hangup":
		return HangupUser
	default:
		return HangupUnknown
	}
}
