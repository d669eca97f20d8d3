package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyClientInvite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/push/invite", r.URL.Path)

		var req inviteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "peer-b", req.To)
		assert.Equal(t, "invite", req.Intent)
		assert.Equal(t, "rel_42", req.Payload.ChannelID)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	notify := NewNotifyClient(NewClient(srv.URL, "dev-1"))
	require.NoError(t, notify.Invite(context.Background(), "peer-b", "rel_42"))
}

func TestNotifyClientInviteBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "push backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	notify := NewNotifyClient(NewClient(srv.URL, "dev-1"))
	err := notify.Invite(context.Background(), "peer-b", "rel_42")
	require.Error(t, err)
}
