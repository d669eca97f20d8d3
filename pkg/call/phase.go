package call

// Phase is the call lifecycle state. Transitions run strictly forward
// except the Ended→Idle reset. Session is the only mutator.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDialing
	PhaseWaitingForPeer
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDialing:
		return "dialing"
	case PhaseWaitingForPeer:
		return "waiting_for_peer"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// InCall reports whether the phase holds channel membership or is on the
// way to acquiring it.
func (p Phase) InCall() bool {
	return p == PhaseDialing || p == PhaseWaitingForPeer || p == PhaseActive
}

// CanTransitionTo checks whether moving to next is a legal phase change.
func (p Phase) CanTransitionTo(next Phase) bool {
	switch p {
	case PhaseIdle:
		return next == PhaseDialing
	case PhaseDialing:
		return next == PhaseWaitingForPeer || next == PhaseEnded
	case PhaseWaitingForPeer:
		return next == PhaseActive || next == PhaseEnded
	case PhaseActive:
		return next == PhaseEnded
	case PhaseEnded:
		return next == PhaseIdle
	default:
		return false
	}
}
