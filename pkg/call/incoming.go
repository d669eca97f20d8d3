package call

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rfonn/walkieLink/pkg/engine"
	"github.com/rfonn/walkieLink/pkg/retry"
)

// DefaultInviteMaxAge is how long an invite stays answerable. Push delivery
// can lag badly; past this cutoff the caller has given up and joining would
// put us alone in a dead channel.
const DefaultInviteMaxAge = 5 * time.Minute

// IncomingHandler answers call invites delivered through the push stream.
type IncomingHandler struct {
	tokens  TokenSource
	eng     engine.Engine
	session *Session
	policy  retry.Policy
	maxAge  time.Duration
}

func NewIncomingHandler(tokens TokenSource, eng engine.Engine, session *Session, policy retry.Policy) *IncomingHandler {
	return &IncomingHandler{
		tokens:  tokens,
		eng:     eng,
		session: session,
		policy:  policy,
		maxAge:  DefaultInviteMaxAge,
	}
}

// HandleInvite validates the invite, fetches a credential for its channel
// and joins. The caller side is already waiting in the channel, so our own
// join completing the session counts as answering.
func (h *IncomingHandler) HandleInvite(ctx context.Context, inv Invite) error {
	if inv.ChannelID == "" {
		return ErrInvalidInvite
	}
	if !inv.SentAt.IsZero() && time.Since(inv.SentAt) > h.maxAge {
		return fmt.Errorf("%w: sent %s ago", ErrStaleInvite, time.Since(inv.SentAt).Round(time.Second))
	}

	log := slog.With("channel", inv.ChannelID, "from", inv.FromPeerID)
	log.Info("answering invite")

	var cred SessionCredential
	err := h.policy.Do(ctx, "invite token", func(ctx context.Context) error {
		c, err := h.tokens.Generate(ctx, inv.ChannelID)
		if err != nil {
			return err
		}
		cred = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("answer invite: %w", err)
	}
	if !cred.MatchesChannel(inv.ChannelID) {
		return ErrChannelMismatch
	}

	if err := h.policy.Do(ctx, "engine init", h.eng.Initialize); err != nil {
		return fmt.Errorf("answer invite: %w", err)
	}

	peer := PeerDescriptor{
		ChannelKey:  inv.ChannelID,
		PeerID:      inv.FromPeerID,
		DisplayName: inv.DisplayName,
	}
	if !h.session.StartCall(ctx, peer, cred) {
		return ErrAnswerFailed
	}
	return nil
}
