package session

import "sterling-dialer/internal/telephony"

// State of a logical lead-contact attempt. A session spans one or two physical calls
// and is reconstructed on every webhook from the was_double_dial metadata flag.
type State int

const (
	FirstAttempt State = iota
	AwaitingRedial
	Complete
)

func (s State) String() string {
	switch s {
	case FirstAttempt:
		return "first_attempt"
	case AwaitingRedial:
		return "awaiting_redial"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Begin returns the state a webhook arrives in. A second leg arrives while the
// session is still waiting on its re-dial.
func Begin(wasDoubleDial bool) State {
	if wasDoubleDial {
		return AwaitingRedial
	}
	return FirstAttempt
}

// Next applies the outcome of one physical call.
func (s State) Next(answered bool) State {
	switch s {
	case FirstAttempt:
		if answered {
			return Complete
		}
		return AwaitingRedial
	default:
		return Complete
	}
}

// Resolve is Begin followed by Next: the state after processing one webhook.
func Resolve(wasDoubleDial, answered bool) State {
	return Begin(wasDoubleDial).Next(answered)
}

// RedialMetadata tags the second physical call so its webhook completes the session.
func RedialMetadata(userID, leadID string) telephony.OutboundMetadata {
	return telephony.OutboundMetadata{UserID: userID, LeadID: leadID, WasDoubleDial: true}
}

// Redial builds the place-call request for the second leg.
func Redial(agentID, fromNumber, toNumber, userID, leadID string) telephony.PlaceCallRequest {
	return telephony.PlaceCallRequest{
		AgentID:    agentID,
		FromNumber: fromNumber,
		ToNumber:   toNumber,
		Metadata:   RedialMetadata(userID, leadID),
	}
}
