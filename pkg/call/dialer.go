package call

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rfonn/walkieLink/pkg/concurrency"
	"github.com/rfonn/walkieLink/pkg/engine"
	"github.com/rfonn/walkieLink/pkg/retry"
)

// TokenSource issues a single-use voice-session credential for a channel.
// Requesting twice yields two independent credentials.
type TokenSource interface {
	Generate(ctx context.Context, channelKey string) (SessionCredential, error)
}

// InviteSender pushes a data-only invite to the peer's device. Delivery is
// best effort.
type InviteSender interface {
	Invite(ctx context.Context, peerID, channelID string) error
}

// WaitPresenter is the staged-feedback controller the dialer drives. Its
// pacing is wall-clock based and independent of the handshake; the dialer
// only reports the terminal result so the display can settle.
type WaitPresenter interface {
	Start()
	ConnectionSucceeded()
	ConnectionFailed()
	StopConnection()
}

// Dialer runs the outbound call handshake: validate the peer, fetch a
// credential, verify it names the requested channel, bring up the engine,
// push the invite, then hand off to the session. At most one dial is in
// flight process-wide.
type Dialer struct {
	guard   *concurrency.Guard
	tokens  TokenSource
	invites InviteSender
	eng     engine.Engine
	session *Session
	stager  WaitPresenter
	policy  retry.Policy

	mu     sync.Mutex
	last   *Attempt
	cancel context.CancelFunc
}

func NewDialer(tokens TokenSource, invites InviteSender, eng engine.Engine, session *Session, stager WaitPresenter, policy retry.Policy) *Dialer {
	return &Dialer{
		guard:   concurrency.NewGuard(),
		tokens:  tokens,
		invites: invites,
		eng:     eng,
		session: session,
		stager:  stager,
		policy:  policy,
	}
}

// Dial runs one handshake and reports its terminal outcome. While another
// dial is pending it returns concurrency.ErrBusy and does nothing; callers
// treat that as a dropped press, not a failure.
func (d *Dialer) Dial(ctx context.Context, peer PeerDescriptor) (Outcome, error) {
	outcome := OutcomeFailed
	err := d.guard.Execute(func() error {
		dialCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		d.mu.Lock()
		d.cancel = cancel
		d.mu.Unlock()

		outcome = d.dial(dialCtx, peer)

		d.mu.Lock()
		d.cancel = nil
		d.mu.Unlock()
		return nil
	})
	if err != nil {
		return OutcomePending, err
	}
	return outcome, nil
}

// Abort cancels the in-flight dial attempt, if any. The handshake finishes
// its current step, then discards its result and unwinds instead of starting
// the session. No-op when nothing is pending.
func (d *Dialer) Abort() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// LastAttempt returns a copy of the most recent attempt record, if any.
func (d *Dialer) LastAttempt() (Attempt, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return Attempt{}, false
	}
	return *d.last, true
}

func (d *Dialer) dial(ctx context.Context, peer PeerDescriptor) Outcome {
	attempt := &Attempt{
		ID:        uuid.NewString(),
		Peer:      peer,
		StartedAt: time.Now(),
		Outcome:   OutcomePending,
	}
	d.mu.Lock()
	d.last = attempt
	d.mu.Unlock()

	log := slog.With("attempt", attempt.ID, "peer", peer.PeerID, "channel", peer.ChannelKey)

	// Feedback covers the whole handshake, token fetch and engine bring-up
	// included, so the staged ceiling bounds those steps too.
	d.stager.Start()

	if err := peer.Validate(); err != nil {
		log.Warn("dial rejected", "error", err)
		return d.finish(attempt, OutcomeFailed)
	}

	cred, err := d.tokens.Generate(ctx, peer.ChannelKey)
	if err != nil {
		log.Error("credential fetch failed", "error", err)
		return d.finish(attempt, failureOutcome(ctx))
	}
	if !cred.MatchesChannel(peer.ChannelKey) {
		// Joining with this credential would land in someone else's channel.
		log.Error("credential rejected", "issued_channel", cred.ChannelID, "error", ErrChannelMismatch)
		return d.finish(attempt, OutcomeFailed)
	}
	d.mu.Lock()
	attempt.Credential = &cred
	d.mu.Unlock()

	if err := d.policy.Do(ctx, "engine init", d.eng.Initialize); err != nil {
		log.Error("engine init failed", "error", err)
		return d.finish(attempt, failureOutcome(ctx))
	}

	if err := d.policy.Do(ctx, "invite push", func(ctx context.Context) error {
		return d.invites.Invite(ctx, peer.PeerID, cred.ChannelID)
	}); err != nil {
		// Non-fatal: the peer may still notice the call without the push.
		log.Warn("invite push failed, continuing", "error", err)
		d.mu.Lock()
		attempt.NotifyErr = err
		d.mu.Unlock()
	}

	if ctx.Err() != nil {
		log.Info("dial cancelled before session start")
		return d.finish(attempt, OutcomeCancelled)
	}

	if d.session.StartCall(ctx, peer, cred) {
		return d.finish(attempt, OutcomeSucceeded)
	}
	if ctx.Err() != nil {
		log.Info("dial cancelled while starting the session")
		return d.finish(attempt, OutcomeCancelled)
	}
	return d.finish(attempt, OutcomeFailed)
}

// finish records the terminal outcome and settles the wait feedback:
// success clears it, a failure shows the terminal display, a cancelled
// attempt resets it and unwinds whatever the handshake left behind.
func (d *Dialer) finish(attempt *Attempt, outcome Outcome) Outcome {
	d.mu.Lock()
	attempt.Outcome = outcome
	d.mu.Unlock()

	switch outcome {
	case OutcomeSucceeded:
		d.stager.ConnectionSucceeded()
	case OutcomeFailed:
		d.stager.ConnectionFailed()
	case OutcomeCancelled:
		d.stager.StopConnection()
	}
	return outcome
}

// failureOutcome tells a step that failed on its own apart from one cut
// short by cancellation.
func failureOutcome(ctx context.Context) Outcome {
	if ctx.Err() != nil {
		return OutcomeCancelled
	}
	return OutcomeFailed
}
