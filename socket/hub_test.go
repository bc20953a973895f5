package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to read messages from a WebSocket connection with a timeout.
func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	var evt Event
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	require.NoError(t, json.Unmarshal(p, &evt), "Failed to unmarshal Event JSON")
	return evt
}

func startHub(t *testing.T, origins ...string) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(origins)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// For simplicity, we'll take the user ID from the query in tests.
		ServeWs(hub, w, r, r.URL.Query().Get("user_id"))
	}))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventsReachOnlyTheOwner(t *testing.T) {
	hub, wsURL := startHub(t)

	owner := dial(t, wsURL+"/ws?user_id=u1", nil)
	ownerSecondTab := dial(t, wsURL+"/ws?user_id=u1", nil)
	stranger := dial(t, wsURL+"/ws?user_id=u2", nil)

	require.Eventually(t, func() bool {
		return hub.ClientCount("u1") == 2 && hub.ClientCount("u2") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish("u1", Event{Type: CreatedType, ID: "abc", UserID: "u1", Payload: json.RawMessage(`{"id":"abc"}`)})

	for _, conn := range []*websocket.Conn{owner, ownerSecondTab} {
		evt := readEvent(t, conn)
		assert.Equal(t, CreatedType, evt.Type)
		assert.Equal(t, "abc", evt.ID)
		assert.JSONEq(t, `{"id":"abc"}`, string(evt.Payload))
	}

	stranger.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := stranger.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout(), "stranger must not receive u1's events")
}

func TestClosedClientIsUnregistered(t *testing.T) {
	hub, wsURL := startHub(t)

	conn := dial(t, wsURL+"/ws?user_id=u1", nil)
	require.Eventually(t, func() bool { return hub.ClientCount("u1") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("u1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestOriginAllowList(t *testing.T) {
	_, wsURL := startHub(t, "http://localhost:3000")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id=u1", http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	dial(t, wsURL+"/ws?user_id=u1", http.Header{"Origin": []string{"http://localhost:3000"}})
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Publish("u1", Event{Type: DeletedType, ID: "abc"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after the hub stopped")
	}
}
