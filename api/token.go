package api

import (
	"context"
	"time"

	"github.com/rfonn/walkieLink/pkg/call"
)

// TokenClient requests voice-session credentials from the token backend.
type TokenClient struct {
	client *Client
}

func NewTokenClient(client *Client) *TokenClient {
	return &TokenClient{client: client}
}

type tokenRequest struct {
	ChannelKey string `json:"channelKey"`
}

type tokenResponse struct {
	ChannelID string `json:"channelId"`
	UID       uint32 `json:"uid"`
	Token     string `json:"token"`
}

// Generate fetches a fresh single-use credential for channelKey. The
// backend echoes the channel it issued for; callers must verify it matches
// before joining.
func (t *TokenClient) Generate(ctx context.Context, channelKey string) (call.SessionCredential, error) {
	var resp tokenResponse
	if err := t.client.postJSON(ctx, "/rtc/token", tokenRequest{ChannelKey: channelKey}, &resp); err != nil {
		return call.SessionCredential{}, err
	}
	return call.SessionCredential{
		ChannelID: resp.ChannelID,
		Identity:  resp.UID,
		Token:     resp.Token,
		IssuedAt:  time.Now(),
	}, nil
}
