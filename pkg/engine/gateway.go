package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"
)

const (
	receiveMTU     uint = 1400
	defaultTimeout      = 15 * time.Second
	eventBufferLen      = 16
)

var ErrAlreadyJoined = errors.New("engine: already joined a channel")

// GatewayEngine is a WebRTC-backed Engine that negotiates offer/answer with
// the voice session gateway over HTTP. The issued token rides in the join
// request; the gateway is responsible for validating it.
type GatewayEngine struct {
	joinURL    string
	httpClient *http.Client

	mu     sync.Mutex
	api    *webrtc.API
	pc     *webrtc.PeerConnection
	sender *webrtc.RTPSender
	track  *webrtc.TrackLocalStaticSample

	events chan Event
}

func NewGatewayEngine(joinURL string) *GatewayEngine {
	return &GatewayEngine{
		joinURL:    joinURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		events:     make(chan Event, eventBufferLen),
	}
}

func (e *GatewayEngine) Events() <-chan Event {
	return e.events
}

// Initialize builds the WebRTC API once. Subsequent calls are no-ops.
func (e *GatewayEngine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.api != nil {
		return nil
	}

	settings := webrtc.SettingEngine{}
	settings.SetICEMulticastDNSMode(ice.MulticastDNSModeQueryAndGather)
	settings.SetReceiveMTU(receiveMTU)

	e.api = webrtc.NewAPI(webrtc.WithSettingEngine(settings))
	return nil
}

type joinRequest struct {
	ChannelID string                    `json:"channelId"`
	UID       uint32                    `json:"uid"`
	Token     string                    `json:"token"`
	Offer     webrtc.SessionDescription `json:"offer"`
}

type joinResponse struct {
	Answer webrtc.SessionDescription `json:"answer"`
}

func (e *GatewayEngine) Join(ctx context.Context, channelID string, identity uint32, token string) error {
	e.mu.Lock()
	if e.api == nil {
		e.mu.Unlock()
		return errors.New("engine: not initialized")
	}
	if e.pc != nil {
		e.mu.Unlock()
		return ErrAlreadyJoined
	}

	pc, err := e.api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine: create peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "walkie")
	if err != nil {
		pc.Close()
		e.mu.Unlock()
		return fmt.Errorf("engine: create audio track: %w", err)
	}
	sender, err := pc.AddTrack(track)
	if err != nil {
		pc.Close()
		e.mu.Unlock()
		return fmt.Errorf("engine: add audio track: %w", err)
	}

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		e.emit(PeerJoined{Identity: uint32(remote.SSRC())})
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		e.handleConnectionState(state)
	})

	e.pc = pc
	e.sender = sender
	e.track = track
	e.mu.Unlock()

	if err := e.negotiate(ctx, pc, channelID, identity, token); err != nil {
		_ = e.Leave()
		return err
	}
	return nil
}

// negotiate runs the blocking offer/answer exchange against the gateway.
func (e *GatewayEngine) negotiate(ctx context.Context, pc *webrtc.PeerConnection, channelID string, identity uint32, token string) error {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("engine: create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("engine: set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return fmt.Errorf("engine: ice gathering: %w", ctx.Err())
	}

	body, err := json.Marshal(joinRequest{
		ChannelID: channelID,
		UID:       identity,
		Token:     token,
		Offer:     *pc.LocalDescription(),
	})
	if err != nil {
		return fmt.Errorf("engine: marshal join request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.joinURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("engine: create join request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine: join channel %q: %w", channelID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine: gateway rejected join with status %s", resp.Status)
	}

	var jr joinResponse
	if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
		return fmt.Errorf("engine: decode join answer: %w", err)
	}
	if err := pc.SetRemoteDescription(jr.Answer); err != nil {
		return fmt.Errorf("engine: set remote description: %w", err)
	}
	return nil
}

func (e *GatewayEngine) Leave() error {
	e.mu.Lock()
	pc := e.pc
	e.pc = nil
	e.sender = nil
	e.track = nil
	e.mu.Unlock()

	if pc == nil {
		return nil
	}
	if err := pc.Close(); err != nil {
		return fmt.Errorf("engine: close peer connection: %w", err)
	}
	return nil
}

func (e *GatewayEngine) SetMuted(muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sender == nil {
		return nil
	}
	if muted {
		return e.sender.ReplaceTrack(nil)
	}
	return e.sender.ReplaceTrack(e.track)
}

// SetSpeakerphone records the requested output route. Actual routing is a
// platform audio concern outside this adapter.
func (e *GatewayEngine) SetSpeakerphone(on bool) error {
	slog.Debug("speakerphone route requested", "on", on)
	return nil
}

func (e *GatewayEngine) handleConnectionState(state webrtc.PeerConnectionState) {
	switch state {
	case webrtc.PeerConnectionStateConnecting:
		e.emit(StateChanged{State: StateConnecting})
	case webrtc.PeerConnectionStateConnected:
		e.emit(StateChanged{State: StateConnected})
	case webrtc.PeerConnectionStateDisconnected:
		e.emit(StateChanged{State: StateReconnecting})
	case webrtc.PeerConnectionStateFailed:
		e.emit(StateChanged{State: StateFailed})
		e.emit(EngineError{Err: errors.New("engine: transport failed")})
	case webrtc.PeerConnectionStateClosed:
		e.emit(StateChanged{State: StateDisconnected})
	}
}

// emit never blocks; a stalled consumer loses events instead of wedging
// SDK callbacks.
func (e *GatewayEngine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		slog.Warn("engine event dropped", "event", fmt.Sprintf("%T", ev))
	}
}
