package call

import (
	"fmt"
	"time"
)

// PeerDescriptor identifies the party being called. It is captured once
// when a dial starts and never mutated for the rest of the attempt.
type PeerDescriptor struct {
	// ChannelKey is the pairwise relationship key naming the voice channel
	// shared by exactly these two peers.
	ChannelKey  string
	PeerID      string
	DisplayName string
	PhotoURL    string
}

// Validate rejects descriptors that cannot name a dialable peer. It runs
// before any collaborator is touched, so a bad descriptor has no side
// effects.
func (p PeerDescriptor) Validate() error {
	if p.ChannelKey == "" {
		return fmt.Errorf("%w: empty channel key", ErrInvalidPeer)
	}
	if p.PeerID == "" {
		return fmt.Errorf("%w: empty peer id", ErrInvalidPeer)
	}
	return nil
}

// SessionCredential is a single-use voice-session credential issued by the
// token backend. It is discarded when the attempt ends.
type SessionCredential struct {
	ChannelID string
	Identity  uint32
	Token     string
	IssuedAt  time.Time
}

// MatchesChannel reports whether the credential was issued for the
// requested channel. A mismatch means the backend handed out a credential
// for someone else's channel and the call must not proceed.
func (c SessionCredential) MatchesChannel(channelKey string) bool {
	return c.ChannelID == channelKey
}

// Invite is the payload of a data-only push waking this client for an
// inbound call.
type Invite struct {
	ChannelID   string    `json:"channelId"`
	FromPeerID  string    `json:"from"`
	DisplayName string    `json:"displayName"`
	SentAt      time.Time `json:"sentAt"`
}
