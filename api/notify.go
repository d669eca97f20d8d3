package api

import "context"

const intentInvite = "invite"

// NotifyClient pushes data-only messages to a peer's registered device
// through the push backend. Delivery is best effort; callers must not
// treat a push failure as a call failure.
type NotifyClient struct {
	client *Client
}

func NewNotifyClient(client *Client) *NotifyClient {
	return &NotifyClient{client: client}
}

type invitePayload struct {
	ChannelID string `json:"channelId"`
}

type inviteRequest struct {
	To      string        `json:"to"`
	Intent  string        `json:"intent"`
	Payload invitePayload `json:"payload"`
}

// Invite wakes peerID's client for a call on channelID.
func (n *NotifyClient) Invite(ctx context.Context, peerID, channelID string) error {
	req := inviteRequest{
		To:      peerID,
		Intent:  intentInvite,
		Payload: invitePayload{ChannelID: channelID},
	}
	return n.client.postJSON(ctx, "/push/invite", req, nil)
}
