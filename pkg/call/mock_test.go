package call

import (
	"context"
	"sync"

	"github.com/rfonn/walkieLink/pkg/engine"
)

// fakeEngine is an in-memory Engine recording every call. Setting emitOnJoin
// makes a successful Join emit PeerJoined, simulating the remote side being
// audible immediately. joinGate, when set, blocks Join mid-flight until
// closed.
type fakeEngine struct {
	mu             sync.Mutex
	initErrs       []error
	initCalls      int
	joinErr        error
	joinCalls      int
	joinedChannel  string
	joinedIdentity uint32
	joinedToken    string
	joinedNow      bool
	leaveErr       error
	leaveCalls     int
	mutedCalls     []bool
	speakerCalls   []bool
	emitOnJoin     bool
	joinGate       chan struct{}
	events         chan engine.Event
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan engine.Event, 8)}
}

func (f *fakeEngine) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	if len(f.initErrs) > 0 {
		err := f.initErrs[0]
		f.initErrs = f.initErrs[1:]
		return err
	}
	return nil
}

func (f *fakeEngine) Join(ctx context.Context, channelID string, identity uint32, token string) error {
	f.mu.Lock()
	f.joinCalls++
	f.joinedChannel = channelID
	f.joinedIdentity = identity
	f.joinedToken = token
	err := f.joinErr
	emit := f.emitOnJoin
	gate := f.joinGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.joinedNow = true
	f.mu.Unlock()
	if emit {
		f.events <- engine.PeerJoined{Identity: identity + 1}
	}
	return nil
}

func (f *fakeEngine) Leave() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveCalls++
	f.joinedNow = false
	return f.leaveErr
}

func (f *fakeEngine) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutedCalls = append(f.mutedCalls, muted)
	return nil
}

func (f *fakeEngine) SetSpeakerphone(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speakerCalls = append(f.speakerCalls, on)
	return nil
}

func (f *fakeEngine) Events() <-chan engine.Event {
	return f.events
}

func (f *fakeEngine) joined() (string, uint32, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joinedChannel, f.joinedIdentity, f.joinedToken
}

func (f *fakeEngine) counts() (init, join, leave int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls, f.joinCalls, f.leaveCalls
}

func (f *fakeEngine) joinedState() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joinedNow
}

// fakeTokens issues a fixed credential. errs is popped per call; an empty
// queue means success. gate, when set, blocks Generate until closed.
type fakeTokens struct {
	mu         sync.Mutex
	cred       SessionCredential
	errs       []error
	calls      int
	gate       chan struct{}
	onGenerate func()
}

func (f *fakeTokens) Generate(ctx context.Context, channelKey string) (SessionCredential, error) {
	f.mu.Lock()
	f.calls++
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	gate := f.gate
	hook := f.onGenerate
	cred := f.cred
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return SessionCredential{}, err
	}
	return cred, nil
}

func (f *fakeTokens) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeInvites struct {
	mu          sync.Mutex
	err         error
	calls       int
	lastPeer    string
	lastChannel string
	onInvite    func()
}

func (f *fakeInvites) Invite(ctx context.Context, peerID, channelID string) error {
	f.mu.Lock()
	f.calls++
	f.lastPeer = peerID
	f.lastChannel = channelID
	err := f.err
	hook := f.onInvite
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeInvites) last() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPeer, f.lastChannel
}

type fakeStager struct {
	mu        sync.Mutex
	starts    int
	succeeded int
	failed    int
	stops     int
}

func (f *fakeStager) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
}

func (f *fakeStager) ConnectionSucceeded() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.succeeded++
}

func (f *fakeStager) ConnectionFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed++
}

func (f *fakeStager) StopConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeStager) snapshot() (starts, succeeded, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.succeeded, f.failed
}

func (f *fakeStager) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}
