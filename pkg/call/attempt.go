package call

import "time"

// Outcome is the terminal result of one dial attempt.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Attempt is the ephemeral record of a single outbound dial. At most one
// attempt is pending process-wide; the Dialer's guard enforces that.
type Attempt struct {
	ID         string
	Peer       PeerDescriptor
	Credential *SessionCredential
	StartedAt  time.Time
	Outcome    Outcome
	// NotifyErr records a failed invite push. It never affects Outcome:
	// the peer can still discover the call without the push.
	NotifyErr error
}
