package call

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rfonn/walkieLink/pkg/engine"
)

const phaseBufferLen = 16

// SessionConfig bounds the waits inside a session.
type SessionConfig struct {
	// JoinTimeout caps how long StartCall waits for the peer to show up
	// after the local engine join succeeded.
	JoinTimeout time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{JoinTimeout: 30 * time.Second}
}

// Session is the single source of truth for the call phase and the only
// component that joins or leaves the voice channel. All engine failures
// are absorbed here: StartCall reports a plain bool and EndCall always
// returns the phase to Idle.
type Session struct {
	eng engine.Engine
	cfg SessionConfig

	mu         sync.Mutex
	phase      Phase
	peer       PeerDescriptor
	muted      bool
	speaker    bool
	peerActive chan struct{}
	ended      chan struct{}

	phases chan Phase
}

func NewSession(eng engine.Engine, cfg SessionConfig) *Session {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultSessionConfig().JoinTimeout
	}
	return &Session{
		eng:    eng,
		cfg:    cfg,
		phase:  PhaseIdle,
		phases: make(chan Phase, phaseBufferLen),
	}
}

// Phases delivers phase changes to observers. Sends never block; a stalled
// observer misses intermediate phases, not the final one it reads next.
func (s *Session) Phases() <-chan Phase {
	return s.phases
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *Session) SpeakerOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaker
}

// StartCall joins the channel with the issued credential and waits for the
// peer. It returns true once the peer is audible (phase Active) and false
// on join failure, timeout, cancellation, or a concurrent EndCall; on every
// false return the phase has been driven back to Idle.
func (s *Session) StartCall(ctx context.Context, peer PeerDescriptor, cred SessionCredential) bool {
	s.mu.Lock()
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		slog.Warn("start call rejected, session not idle", "phase", s.phase.String())
		return false
	}
	s.peer = peer
	s.muted = false
	s.speaker = false
	s.peerActive = make(chan struct{}, 1)
	s.ended = make(chan struct{})
	active := s.peerActive
	ended := s.ended
	s.setPhaseLocked(PhaseDialing)
	s.mu.Unlock()

	if err := s.eng.Join(ctx, cred.ChannelID, cred.Identity, cred.Token); err != nil {
		slog.Error("engine join failed", "channel", cred.ChannelID, "error", err)
		s.EndCall()
		return false
	}

	s.mu.Lock()
	if s.phase != PhaseDialing {
		// Ended underneath us while joining. That teardown's Leave ran
		// before our join landed, so unwind the late join here.
		s.mu.Unlock()
		if err := s.eng.Leave(); err != nil {
			slog.Warn("engine leave failed after late join", "error", err)
		}
		return false
	}
	s.setPhaseLocked(PhaseWaitingForPeer)
	s.mu.Unlock()

	timer := time.NewTimer(s.cfg.JoinTimeout)
	defer timer.Stop()

	select {
	case <-active:
		s.mu.Lock()
		if s.phase != PhaseWaitingForPeer {
			s.mu.Unlock()
			return false
		}
		s.setPhaseLocked(PhaseActive)
		s.mu.Unlock()
		slog.Info("call active", "peer", peer.PeerID, "channel", cred.ChannelID)
		return true
	case <-ended:
		return false
	case <-ctx.Done():
		slog.Info("call cancelled while waiting for peer", "peer", peer.PeerID)
		s.EndCall()
		return false
	case <-timer.C:
		slog.Info("peer did not join in time", "peer", peer.PeerID, "timeout", s.cfg.JoinTimeout)
		s.EndCall()
		return false
	}
}

// EndCall tears the call down from any phase and always lands on Idle.
// A failing engine leave is logged and swallowed: local state must reach a
// clean Idle even when remote cleanup fails, or every future call would be
// blocked. Idempotent.
func (s *Session) EndCall() {
	s.mu.Lock()
	if s.phase == PhaseIdle || s.phase == PhaseEnded {
		s.mu.Unlock()
		return
	}
	if s.ended != nil {
		close(s.ended)
		s.ended = nil
	}
	s.setPhaseLocked(PhaseEnded)
	s.mu.Unlock()

	if err := s.eng.Leave(); err != nil {
		slog.Warn("engine leave failed during teardown", "error", err)
	}

	s.mu.Lock()
	s.peerActive = nil
	s.setPhaseLocked(PhaseIdle)
	s.mu.Unlock()
}

// ToggleMute flips the microphone. No-op outside an active call.
func (s *Session) ToggleMute() {
	s.mu.Lock()
	if s.phase != PhaseActive {
		s.mu.Unlock()
		return
	}
	s.muted = !s.muted
	muted := s.muted
	s.mu.Unlock()

	if err := s.eng.SetMuted(muted); err != nil {
		slog.Warn("set muted failed", "muted", muted, "error", err)
	}
}

// ToggleSpeaker flips the output route. No-op outside an active call.
func (s *Session) ToggleSpeaker() {
	s.mu.Lock()
	if s.phase != PhaseActive {
		s.mu.Unlock()
		return
	}
	s.speaker = !s.speaker
	speaker := s.speaker
	s.mu.Unlock()

	if err := s.eng.SetSpeakerphone(speaker); err != nil {
		slog.Warn("set speakerphone failed", "on", speaker, "error", err)
	}
}

// ConsumeEngineEvents pumps the engine's event stream into session state:
// a joined peer completes StartCall, a departed peer or engine failure ends
// the call. Run it once, alongside the session's lifetime.
func (s *Session) ConsumeEngineEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.eng.Events():
			if !ok {
				return nil
			}
			s.handleEngineEvent(ev)
		}
	}
}

func (s *Session) handleEngineEvent(ev engine.Event) {
	switch e := ev.(type) {
	case engine.PeerJoined:
		s.signalPeerActive()
	case engine.PeerLeft:
		slog.Info("peer left channel", "identity", e.Identity)
		if s.Phase() == PhaseActive {
			s.EndCall()
		}
	case engine.StateChanged:
		slog.Debug("engine connection state", "state", e.State.String())
		if e.State == engine.StateFailed && s.Phase().InCall() {
			s.EndCall()
		}
	case engine.EngineError:
		slog.Error("engine error", "error", e.Err)
		if s.Phase().InCall() {
			s.EndCall()
		}
	}
}

func (s *Session) signalPeerActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peerActive == nil {
		return
	}
	select {
	case s.peerActive <- struct{}{}:
	default:
	}
}

// setPhaseLocked applies a phase change and emits it. Callers hold s.mu.
func (s *Session) setPhaseLocked(next Phase) {
	if s.phase == next {
		return
	}
	if !s.phase.CanTransitionTo(next) {
		slog.Error("illegal phase transition", "from", s.phase.String(), "to", next.String())
		return
	}
	s.phase = next
	select {
	case s.phases <- next:
	default:
	}
}
