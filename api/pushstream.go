package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rfonn/walkieLink/pkg/call"
)

// PushStream is the client's push inbox: a long-lived SSE subscription on
// the push backend delivering data-only messages for this device. Invites
// come out as typed values; one malformed event never kills the stream.
type PushStream struct {
	client  *Client
	invites chan call.Invite
}

func NewPushStream(client *Client) *PushStream {
	return &PushStream{
		client:  client,
		invites: make(chan call.Invite, 4),
	}
}

// Invites delivers decoded call invites.
func (p *PushStream) Invites() <-chan call.Invite {
	return p.invites
}

// Listen subscribes and pumps events until the stream breaks or ctx ends.
// It returns nil on cancellation and an error when the stream itself fails,
// so callers can decide whether to resubscribe.
func (p *PushStream) Listen(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.client.BaseURL()+"/push/stream", nil)
	if err != nil {
		return fmt.Errorf("create push stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client enforces a request timeout, which would cut a
	// long-lived stream short; use its transport without the deadline.
	streamClient := &http.Client{Transport: p.client.HTTPClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connect to push stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push stream responded with status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	var currentEvent string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			p.routeEvent(ctx, currentEvent, data)
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("read push stream: %w", err)
	}
	return nil
}

func (p *PushStream) routeEvent(ctx context.Context, event, data string) {
	switch event {
	case intentInvite:
		var inv call.Invite
		if err := json.Unmarshal([]byte(data), &inv); err != nil {
			slog.Error("failed to unmarshal invite event", "error", err)
			return
		}
		select {
		case p.invites <- inv:
		case <-ctx.Done():
		}
	case "ping":
		// keepalive
	default:
		slog.Warn("received unknown push event", "event", event)
	}
}
