package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushStreamDeliversInvites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/push/stream", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, "event: ping\ndata: {}\n\n")
		// One malformed invite must not kill the stream.
		fmt.Fprint(w, "event: invite\ndata: not-json\n\n")
		fmt.Fprint(w, "event: invite\ndata: {\"channelId\":\"rel_42\",\"from\":\"peer-a\",\"displayName\":\"Ana\"}\n\n")
		fl.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	stream := NewPushStream(NewClient(srv.URL, "dev-1"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- stream.Listen(ctx) }()

	select {
	case inv := <-stream.Invites():
		assert.Equal(t, "rel_42", inv.ChannelID)
		assert.Equal(t, "peer-a", inv.FromPeerID)
		assert.Equal(t, "Ana", inv.DisplayName)
	case <-time.After(2 * time.Second):
		t.Fatal("no invite delivered")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestPushStreamBackendErrorReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no stream for you", http.StatusInternalServerError)
	}))
	defer srv.Close()

	stream := NewPushStream(NewClient(srv.URL, "dev-1"))
	err := stream.Listen(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
