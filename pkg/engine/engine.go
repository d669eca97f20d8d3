package engine

import "context"

// ConnectionState mirrors the transport's connection lifecycle.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is the marker interface for engine events. The unexported method
// restricts implementations to this package so consumers can exhaustively
// switch on the known variants.
type Event interface {
	isEngineEvent()
}

type event struct{}

func (event) isEngineEvent() {}

// PeerJoined is emitted when the remote side becomes audible on the channel.
type PeerJoined struct {
	event
	Identity uint32
}

// PeerLeft is emitted when the remote side drops off the channel.
type PeerLeft struct {
	event
	Identity uint32
}

// StateChanged reports transport connection-state transitions.
type StateChanged struct {
	event
	State ConnectionState
}

// EngineError reports an asynchronous engine failure.
type EngineError struct {
	event
	Err error
}

var (
	_ Event = (*PeerJoined)(nil)
	_ Event = (*PeerLeft)(nil)
	_ Event = (*StateChanged)(nil)
	_ Event = (*EngineError)(nil)
)

// Engine is the voice transport used for a call. Implementations hold the
// single channel-membership handle; callers must not join twice without an
// intervening Leave.
type Engine interface {
	// Initialize prepares the engine. It is idempotent and cheap to call
	// when already initialized.
	Initialize(ctx context.Context) error
	// Join connects to the named channel using the issued identity and token.
	Join(ctx context.Context, channelID string, identity uint32, token string) error
	// Leave disconnects from the current channel. Safe to call when not joined.
	Leave() error
	SetMuted(muted bool) error
	SetSpeakerphone(on bool) error
	// Events delivers engine events. The channel is never closed by Join/Leave
	// cycles; slow consumers may lose events.
	Events() <-chan Event
}
