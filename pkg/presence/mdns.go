package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/brutella/dnssd"
)

// MDNSAdapter advertises and browses walkie peers over multicast DNS.
type MDNSAdapter struct{}

func (m *MDNSAdapter) Announce(ctx context.Context, self Peer) error {
	cfg := dnssd.Config{
		Name:   self.DisplayName,
		Type:   ServiceType,
		Domain: Domain,
		// mDNS multicasts on every interface, leave IPs nil.
		IPs:  nil,
		Port: self.Port,
		Text: map[string]string{
			txtPeerID:     self.PeerID,
			txtChannelKey: self.ChannelKey,
			txtName:       self.DisplayName,
		},
	}

	service, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}
	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("create mDNS responder: %w", err)
	}
	if _, err = rp.Add(service); err != nil {
		return fmt.Errorf("add mDNS service: %w", err)
	}

	if err = rp.Respond(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("respond to mDNS queries: %w", err)
	}
	return nil
}

// Browse watches for peers and emits a full snapshot on every change.
func (m *MDNSAdapter) Browse(ctx context.Context) (<-chan []Peer, error) {
	var (
		mu      sync.Mutex
		entries = make(map[string]Peer)
		out     = make(chan []Peer, 10)
	)

	sendSnapshot := func() {
		mu.Lock()
		snapshot := make([]Peer, 0, len(entries))
		for _, p := range entries {
			snapshot = append(snapshot, p)
		}
		mu.Unlock()
		select {
		case out <- snapshot:
		default:
		}
	}

	addFn := func(e dnssd.BrowseEntry) {
		peer, ok := peerFromEntry(e)
		if !ok {
			return
		}
		mu.Lock()
		entries[entryKey(e)] = peer
		mu.Unlock()
		sendSnapshot()
	}
	rmvFn := func(e dnssd.BrowseEntry) {
		mu.Lock()
		delete(entries, entryKey(e))
		mu.Unlock()
		sendSnapshot()
	}

	go func() {
		defer close(out)
		service := fmt.Sprintf("%s.%s.", ServiceType, Domain)
		if err := dnssd.LookupType(ctx, service, addFn, rmvFn); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("mDNS browse stopped", "error", err)
		}
	}()

	return out, nil
}

func entryKey(e dnssd.BrowseEntry) string {
	return fmt.Sprintf("%s:%s:%s", e.Name, e.Type, e.Domain)
}

// peerFromEntry maps a browse entry onto a Peer. Entries missing the peer
// id or channel key TXT records are not dialable and are skipped.
func peerFromEntry(e dnssd.BrowseEntry) (Peer, bool) {
	peerID := e.Text[txtPeerID]
	channelKey := e.Text[txtChannelKey]
	if peerID == "" || channelKey == "" {
		return Peer{}, false
	}
	name := e.Text[txtName]
	if name == "" {
		name = e.Name
	}
	var addr = Peer{
		PeerID:      peerID,
		DisplayName: name,
		ChannelKey:  channelKey,
		Port:        e.Port,
	}
	if len(e.IPs) > 0 {
		addr.Addr = e.IPs[0]
	}
	return addr, true
}
