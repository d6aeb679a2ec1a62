package signaling_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodger215/e-learnig-app/internal/signaling"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// startEchoServer accepts one websocket connection and echoes every envelope
// back, recording the auth header it saw.
func startEchoServer(t *testing.T) (*httptest.Server, *string) {
	t.Helper()

	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var env signaling.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if err := conn.WriteJSON(&env); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, &authHeader
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientSendAndDispatch(t *testing.T) {
	srv, _ := startEchoServer(t)

	client := signaling.NewClient(wsURL(srv), "")
	require.NoError(t, client.Connect())
	defer client.Close()

	received := make(chan json.RawMessage, 1)
	client.On(signaling.EventJoinMeeting, func(p json.RawMessage) {
		received <- p
	})

	client.Send(signaling.EventJoinMeeting, signaling.JoinPayload{MeetingID: "math-101", Name: "Alice"})

	select {
	case raw := <-received:
		var p signaling.JoinPayload
		require.NoError(t, json.Unmarshal(raw, &p))
		assert.Equal(t, "math-101", p.MeetingID)
		assert.Equal(t, "Alice", p.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("echoed envelope never dispatched")
	}
}

func TestClientPresentsBearerToken(t *testing.T) {
	srv, authHeader := startEchoServer(t)

	client := signaling.NewClient(wsURL(srv), "secret-token")
	require.NoError(t, client.Connect())
	defer client.Close()

	assert.Equal(t, "Bearer secret-token", *authHeader)
	assert.True(t, client.Connected())
}

func TestClientUnsubscribeStopsDelivery(t *testing.T) {
	srv, _ := startEchoServer(t)

	client := signaling.NewClient(wsURL(srv), "")
	require.NoError(t, client.Connect())
	defer client.Close()

	first := make(chan struct{}, 2)
	off := client.On(signaling.EventSendMessage, func(json.RawMessage) {
		first <- struct{}{}
	})
	probe := make(chan struct{}, 2)
	client.On(signaling.EventLeaveMeeting, func(json.RawMessage) {
		probe <- struct{}{}
	})

	client.Send(signaling.EventSendMessage, nil)
	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	off()

	// The probe event echoes after the unsubscribed one; its arrival
	// proves the first handler had its chance and was skipped.
	client.Send(signaling.EventSendMessage, nil)
	client.Send(signaling.EventLeaveMeeting, nil)
	select {
	case <-probe:
	case <-time.After(2 * time.Second):
		t.Fatal("probe handler never ran")
	}
	assert.Empty(t, first)
}

func TestClientConnectFailure(t *testing.T) {
	client := signaling.NewClient("ws://127.0.0.1:1/ws", "")
	assert.Error(t, client.Connect())
}

func TestClientSendWhileDisconnectedIsDropped(t *testing.T) {
	client := signaling.NewClient("ws://unused.invalid/ws", "")

	// Never connected: Send must not block or panic.
	client.Send(signaling.EventSendMessage, signaling.ChatPayload{Text: "lost"})
	assert.False(t, client.Connected())
}

func TestClientCloseIsIdempotent(t *testing.T) {
	srv, _ := startEchoServer(t)

	client := signaling.NewClient(wsURL(srv), "")
	require.NoError(t, client.Connect())

	client.Close()
	client.Close()
	assert.False(t, client.Connected())
}
