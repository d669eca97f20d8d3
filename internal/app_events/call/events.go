package call

import (
	appevents "github.com/rfonn/walkieLink/internal/app_events"
	corecall "github.com/rfonn/walkieLink/pkg/call"
	"github.com/rfonn/walkieLink/pkg/presence"
	"github.com/rfonn/walkieLink/pkg/waitstage"
)

// --- App events (TUI to app) ---

// DialRequestedMsg is sent when the user presses talk on a peer.
type DialRequestedMsg struct {
	appevents.Event
	Peer presence.Peer
}

// EndCallMsg is sent when the user hangs up or cancels a pending dial.
type EndCallMsg struct {
	appevents.Event
}

type ToggleMuteMsg struct {
	appevents.Event
}

type ToggleSpeakerMsg struct {
	appevents.Event
}

var (
	_ appevents.AppEvent = (*DialRequestedMsg)(nil)
	_ appevents.AppEvent = (*EndCallMsg)(nil)
	_ appevents.AppEvent = (*ToggleMuteMsg)(nil)
	_ appevents.AppEvent = (*ToggleSpeakerMsg)(nil)
)

// --- UI messages (app to TUI) ---

// PeersFoundMsg carries the latest presence snapshot.
type PeersFoundMsg struct {
	Peers []presence.Peer
}

// PhaseMsg reports a call phase change.
type PhaseMsg struct {
	Phase corecall.Phase
}

// WaitStageMsg reports a staged-wait feedback change.
type WaitStageMsg struct {
	Stage waitstage.Stage
}

// CallFailedMsg reports a dial that ended without connecting.
type CallFailedMsg struct {
	PeerName string
}

// IncomingCallMsg reports an answered inbound invite.
type IncomingCallMsg struct {
	FromName string
}
