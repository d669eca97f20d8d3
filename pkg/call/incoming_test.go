package call

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleInviteAnswersAndJoins(t *testing.T) {
	eng := newFakeEngine()
	eng.emitOnJoin = true
	session, ctx := newDialerFixture(t, eng)
	tokens := &fakeTokens{cred: SessionCredential{ChannelID: "rel_42", Identity: 9, Token: "tok"}}
	h := NewIncomingHandler(tokens, eng, session, quickPolicy())

	inv := Invite{ChannelID: "rel_42", FromPeerID: "peer-a", DisplayName: "Ana", SentAt: time.Now()}
	require.NoError(t, h.HandleInvite(ctx, inv))

	channel, identity, _ := eng.joined()
	assert.Equal(t, "rel_42", channel)
	assert.Equal(t, uint32(9), identity)
	assert.Equal(t, PhaseActive, session.Phase())
}

func TestHandleInviteRejectsEmptyChannel(t *testing.T) {
	eng := newFakeEngine()
	session, ctx := newDialerFixture(t, eng)
	h := NewIncomingHandler(&fakeTokens{}, eng, session, quickPolicy())

	err := h.HandleInvite(ctx, Invite{FromPeerID: "peer-a"})
	require.ErrorIs(t, err, ErrInvalidInvite)
}

func TestHandleInviteRejectsStaleInvite(t *testing.T) {
	eng := newFakeEngine()
	session, ctx := newDialerFixture(t, eng)
	tokens := &fakeTokens{}
	h := NewIncomingHandler(tokens, eng, session, quickPolicy())

	inv := Invite{ChannelID: "rel_42", FromPeerID: "peer-a", SentAt: time.Now().Add(-10 * time.Minute)}
	err := h.HandleInvite(ctx, inv)
	require.ErrorIs(t, err, ErrStaleInvite)
	assert.Equal(t, 0, tokens.callCount())
}

func TestHandleInviteRejectsChannelMismatch(t *testing.T) {
	eng := newFakeEngine()
	session, ctx := newDialerFixture(t, eng)
	tokens := &fakeTokens{cred: SessionCredential{ChannelID: "rel_9", Identity: 9, Token: "tok"}}
	h := NewIncomingHandler(tokens, eng, session, quickPolicy())

	err := h.HandleInvite(ctx, Invite{ChannelID: "rel_7", FromPeerID: "peer-a", SentAt: time.Now()})
	require.ErrorIs(t, err, ErrChannelMismatch)

	initCalls, joinCalls, _ := eng.counts()
	assert.Equal(t, 0, initCalls)
	assert.Equal(t, 0, joinCalls)
}

func TestHandleInviteRetriesTokenFetch(t *testing.T) {
	eng := newFakeEngine()
	eng.emitOnJoin = true
	session, ctx := newDialerFixture(t, eng)
	tokens := &fakeTokens{
		cred: SessionCredential{ChannelID: "rel_42", Identity: 9, Token: "tok"},
		errs: []error{errors.New("token backend hiccup")},
	}
	h := NewIncomingHandler(tokens, eng, session, quickPolicy())

	inv := Invite{ChannelID: "rel_42", FromPeerID: "peer-a", SentAt: time.Now()}
	require.NoError(t, h.HandleInvite(ctx, inv))
	assert.Equal(t, 2, tokens.callCount())
}

func TestHandleInviteReportsAnswerFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.joinErr = errors.New("join refused")
	session, ctx := newDialerFixture(t, eng)
	tokens := &fakeTokens{cred: SessionCredential{ChannelID: "rel_42", Identity: 9, Token: "tok"}}
	h := NewIncomingHandler(tokens, eng, session, quickPolicy())

	inv := Invite{ChannelID: "rel_42", FromPeerID: "peer-a", SentAt: time.Now()}
	err := h.HandleInvite(ctx, inv)
	require.ErrorIs(t, err, ErrAnswerFailed)
	assert.Equal(t, PhaseIdle, session.Phase())
}
