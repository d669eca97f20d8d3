package walkie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rfonn/walkieLink/api"
	appevents "github.com/rfonn/walkieLink/internal/app_events"
	callEvent "github.com/rfonn/walkieLink/internal/app_events/call"
	"github.com/rfonn/walkieLink/pkg/call"
	"github.com/rfonn/walkieLink/pkg/concurrency"
	"github.com/rfonn/walkieLink/pkg/engine"
	"github.com/rfonn/walkieLink/pkg/presence"
	"github.com/rfonn/walkieLink/pkg/retry"
	"github.com/rfonn/walkieLink/pkg/waitstage"
)

// Config is the runtime configuration for the app controller.
type Config struct {
	// BackendURL is the root of the token/push/session backend.
	BackendURL string
	// DisplayName is advertised to peers on the local network.
	DisplayName string
	// PresencePort is the port announced over mDNS.
	PresencePort int
}

func DefaultConfig() Config {
	return Config{
		BackendURL:   "http://127.0.0.1:8787",
		DisplayName:  "walkie",
		PresencePort: 52030,
	}
}

// App is the logic controller wiring the call core together: presence feeds
// the peer roster, the dialer runs outbound handshakes, the push stream
// feeds the answering side, and the TUI talks to all of it through typed
// events. Every collaborator is constructed here and passed down
// explicitly; nothing hangs off package-level state.
type App struct {
	deviceID   string
	channelKey string
	cfg        Config

	presence presence.Adapter
	push     *api.PushStream
	session  *call.Session
	dialer   *call.Dialer
	incoming *call.IncomingHandler
	stager   *waitstage.Controller

	uiMessages chan tea.Msg
	appEvents  chan appevents.AppEvent
	callWG     sync.WaitGroup
}

func NewApp(cfg Config, adapter presence.Adapter) *App {
	deviceID := uuid.NewString()
	client := api.NewClient(cfg.BackendURL, deviceID)
	eng := engine.NewGatewayEngine(cfg.BackendURL + "/rtc/join")
	session := call.NewSession(eng, call.DefaultSessionConfig())
	stager := waitstage.NewController(waitstage.DefaultConfig(), session.EndCall)
	policy := retry.DefaultPolicy()
	tokens := api.NewTokenClient(client)

	return &App{
		deviceID:   deviceID,
		channelKey: fmt.Sprintf("rel-%s", uuid.NewString()[:8]),
		cfg:        cfg,
		presence:   adapter,
		push:       api.NewPushStream(client),
		session:    session,
		dialer:     call.NewDialer(tokens, api.NewNotifyClient(client), eng, session, stager, policy),
		incoming:   call.NewIncomingHandler(tokens, eng, session, policy),
		stager:     stager,
		uiMessages: make(chan tea.Msg, 10),
		appEvents:  make(chan appevents.AppEvent),
	}
}

// UIMessages returns the channel the TUI listens on for updates.
func (a *App) UIMessages() <-chan tea.Msg {
	return a.uiMessages
}

// AppEvents returns a write-only channel for the TUI to send events to the app.
func (a *App) AppEvents() chan<- appevents.AppEvent {
	return a.appEvents
}

// Run starts the controller's loops and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.runAnnounce(ctx) })
	g.Go(func() error { return a.runBrowse(ctx) })
	g.Go(func() error { return a.session.ConsumeEngineEvents(ctx) })
	g.Go(func() error { return a.forwardPhases(ctx) })
	g.Go(func() error { return a.forwardStages(ctx) })
	g.Go(func() error { return a.runPushStream(ctx) })
	g.Go(func() error { return a.answerInvites(ctx) })
	g.Go(func() error { return a.dispatchEvents(ctx) })

	return g.Wait()
}

func (a *App) runAnnounce(ctx context.Context) error {
	self := presence.Peer{
		PeerID:      a.deviceID,
		DisplayName: a.cfg.DisplayName,
		ChannelKey:  a.channelKey,
		Port:        a.cfg.PresencePort,
	}
	if err := a.presence.Announce(ctx, self); err != nil {
		a.sendAndLogError("Failed to announce presence", err)
		return err
	}
	return nil
}

func (a *App) runBrowse(ctx context.Context) error {
	peersCh, err := a.presence.Browse(ctx)
	if err != nil {
		a.sendAndLogError("Failed to start peer discovery", err)
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case peers, ok := <-peersCh:
			if !ok {
				return nil
			}
			roster := make([]presence.Peer, 0, len(peers))
			for _, p := range peers {
				if p.PeerID == a.deviceID {
					continue
				}
				roster = append(roster, p)
			}
			a.uiMessages <- callEvent.PeersFoundMsg{Peers: roster}
		}
	}
}

func (a *App) forwardPhases(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case phase := <-a.session.Phases():
			a.uiMessages <- callEvent.PhaseMsg{Phase: phase}
		}
	}
}

func (a *App) forwardStages(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case stage := <-a.stager.Stages():
			a.uiMessages <- callEvent.WaitStageMsg{Stage: stage}
		}
	}
}

// runPushStream keeps the invite inbox subscribed, resubscribing after
// stream failures. Push is best effort, so a dead push backend degrades to
// log noise instead of taking the app down.
func (a *App) runPushStream(ctx context.Context) error {
	const resubscribeDelay = 5 * time.Second
	for {
		err := a.push.Listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			slog.Warn("push stream broke, resubscribing", "delay", resubscribeDelay, "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(resubscribeDelay):
		}
	}
}

func (a *App) answerInvites(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case inv := <-a.push.Invites():
			a.callWG.Add(1)
			go func(inv call.Invite) {
				defer a.callWG.Done()
				if err := a.incoming.HandleInvite(ctx, inv); err != nil {
					slog.Warn("invite not answered", "channel", inv.ChannelID, "error", err)
					return
				}
				a.uiMessages <- callEvent.IncomingCallMsg{FromName: inv.DisplayName}
			}(inv)
		}
	}
}

func (a *App) dispatchEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Let in-flight calls unwind before reporting shutdown.
			a.callWG.Wait()
			return nil
		case event := <-a.appEvents:
			switch e := event.(type) {
			case callEvent.DialRequestedMsg:
				a.startDial(ctx, e.Peer)
			case callEvent.EndCallMsg:
				// Abort discards a handshake still in flight, StopConnection
				// a pending wait, EndCall an already-active call. All
				// idempotent.
				a.dialer.Abort()
				a.stager.StopConnection()
				a.session.EndCall()
			case callEvent.ToggleMuteMsg:
				a.session.ToggleMute()
			case callEvent.ToggleSpeakerMsg:
				a.session.ToggleSpeaker()
			}
		}
	}
}

// startDial runs one outbound handshake in the background. A press while
// another call is pending is dropped silently.
func (a *App) startDial(ctx context.Context, p presence.Peer) {
	peer := call.PeerDescriptor{
		ChannelKey:  p.ChannelKey,
		PeerID:      p.PeerID,
		DisplayName: p.DisplayName,
	}

	a.callWG.Add(1)
	go func() {
		defer a.callWG.Done()
		outcome, err := a.dialer.Dial(ctx, peer)
		if err != nil {
			if errors.Is(err, concurrency.ErrBusy) {
				slog.Debug("dial dropped, a call is already pending", "peer", peer.PeerID)
				return
			}
			a.sendAndLogError("Call failed", err)
			return
		}
		if outcome == call.OutcomeFailed {
			a.uiMessages <- callEvent.CallFailedMsg{PeerName: peer.DisplayName}
		}
	}()
}

func (a *App) sendAndLogError(baseMessage string, err error) {
	slog.Error(baseMessage, "error", err)
	a.uiMessages <- appevents.AppErrorMsg{Err: fmt.Errorf("%s: %w", baseMessage, err)}
}
