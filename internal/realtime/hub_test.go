package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, hub *Hub, userID string, streams []string, allowed map[string]struct{}) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(userID, streams, allowed, w, r)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func waitForOnline(t *testing.T, hub *Hub, userID string, online bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.IsOnline(userID) == online {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("user %s online state never became %v", userID, online)
}

func TestHubPresenceTracking(t *testing.T) {
	hub := NewHub()

	conn := dialTestHub(t, hub, "user-a", []string{StreamPresence}, nil)
	waitForOnline(t, hub, "user-a", true)
	require.Equal(t, []string{"user-a"}, hub.OnlineUsers())

	require.NoError(t, conn.Close())
	waitForOnline(t, hub, "user-a", false)
	require.Empty(t, hub.OnlineUsers())
}

func TestHubBroadcastToUser(t *testing.T) {
	hub := NewHub()

	conn := dialTestHub(t, hub, "user-b", []string{"chat:rel-1"}, nil)
	waitForOnline(t, hub, "user-b", true)

	hub.BroadcastToUser("chat:rel-1", "user-b", Message{
		Event: EventChatMessage,
		Data:  map[string]any{"body": "hello"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var received Message
	require.NoError(t, conn.ReadJSON(&received))
	require.Equal(t, "chat:rel-1", received.Stream)
	require.Equal(t, EventChatMessage, received.Event)
}

func TestHubIgnoresUnauthorizedStreams(t *testing.T) {
	hub := NewHub()

	allowed := map[string]struct{}{"chat:mine": {}}
	conn := dialTestHub(t, hub, "user-c", []string{"chat:mine", "chat:other"}, allowed)
	waitForOnline(t, hub, "user-c", true)

	// Messages on the unauthorized stream never reach the client; the allowed
	// stream still works.
	hub.BroadcastStream("chat:other", Message{Event: "secret"})
	hub.BroadcastStream("chat:mine", Message{Event: "update"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var received Message
	require.NoError(t, conn.ReadJSON(&received))
	require.Equal(t, "update", received.Event)
	require.Equal(t, "chat:mine", received.Stream)
}

func TestHubPingControl(t *testing.T) {
	hub := NewHub()

	conn := dialTestHub(t, hub, "user-d", nil, nil)
	waitForOnline(t, hub, "user-d", true)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "ping"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var received Message
	require.NoError(t, conn.ReadJSON(&received))
	require.Equal(t, "pong", received.Event)
}
