package presence

import (
	"context"
	"net"
)

const (
	ServiceType = "_walkie-talk._tcp"
	Domain      = "local"
)

// TXT record keys advertised alongside the service instance.
const (
	txtPeerID     = "peer_id"
	txtChannelKey = "channel_key"
	txtName       = "name"
)

// Peer is a reachable friend on the local network. ChannelKey is the
// channel to dial to reach them.
type Peer struct {
	PeerID      string
	DisplayName string
	ChannelKey  string
	Addr        net.IP
	Port        int
}

// Adapter announces our own presence and browses for friends.
type Adapter interface {
	Announce(ctx context.Context, self Peer) error
	Browse(ctx context.Context) (<-chan []Peer, error)
}
