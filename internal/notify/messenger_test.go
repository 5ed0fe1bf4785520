// ABOUTME: Tests for the Messenger Send API client.
// ABOUTME: Uses an httptest server standing in for the Graph API.

package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver_PostsSendRequest(t *testing.T) {
	var captured sendRequest
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/me/messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		query = r.URL.Query().Get("access_token")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		_, _ = w.Write([]byte(`{"recipient_id":"user-1","message_id":"mid.1"}`))
	}))
	defer srv.Close()

	c := NewMessengerClient("page-token", WithBaseURL(srv.URL))
	err := c.Deliver(context.Background(), "user-1", OutboundReply{Text: "1. A고 (서울)\n2. B고 (경기)"})
	require.NoError(t, err)

	assert.Equal(t, "page-token", query)
	assert.Equal(t, "user-1", captured.Recipient.ID)
	assert.Equal(t, "1. A고 (서울)\n2. B고 (경기)", captured.Message.Text)
}

func TestDeliver_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token."}}`))
	}))
	defer srv.Close()

	c := NewMessengerClient("bad-token", WithBaseURL(srv.URL))
	err := c.Deliver(context.Background(), "user-1", OutboundReply{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestDeliver_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewMessengerClient("page-token", WithBaseURL(srv.URL))
	err := c.Deliver(context.Background(), "user-1", OutboundReply{Text: "hi"})
	require.Error(t, err)
}
