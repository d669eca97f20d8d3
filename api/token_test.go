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

func TestTokenClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rtc/token", r.URL.Path)
		assert.Equal(t, "dev-1", r.Header.Get("X-Device-ID"))

		var req tokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rel_42", req.ChannelKey)

		json.NewEncoder(w).Encode(tokenResponse{
			ChannelID: "rel_42",
			UID:       100234,
			Token:     "tok-abc",
		})
	}))
	defer srv.Close()

	tokens := NewTokenClient(NewClient(srv.URL, "dev-1"))
	cred, err := tokens.Generate(context.Background(), "rel_42")
	require.NoError(t, err)

	assert.Equal(t, "rel_42", cred.ChannelID)
	assert.Equal(t, uint32(100234), cred.Identity)
	assert.Equal(t, "tok-abc", cred.Token)
	assert.False(t, cred.IssuedAt.IsZero())
	assert.True(t, cred.MatchesChannel("rel_42"))
}

func TestTokenClientGenerateBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tokens := NewTokenClient(NewClient(srv.URL, "dev-1"))
	_, err := tokens.Generate(context.Background(), "rel_42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
