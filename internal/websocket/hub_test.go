package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *gws.Conn, msgType, room string, payload interface{}) {
	t.Helper()
	data := map[string]interface{}{"room": room}
	if payload != nil {
		data["payload"] = payload
	}
	msg, err := json.Marshal(map[string]interface{}{"type": msgType, "data": data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(gws.TextMessage, msg))
}

// readMessage reads one frame with a deadline so a broken broadcast fails
// the test instead of hanging it.
func readMessage(t *testing.T, conn *gws.Conn) outMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "failed to read message")
	var msg outMessage
	require.NoError(t, json.Unmarshal(p, &msg))
	return msg
}

func assertSilent(t *testing.T, conn *gws.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected no message")
}

func waitForMembers(t *testing.T, hub *Hub, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.registry.MembersExcept(room, nil)) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d members", room, want)
}

func waitForNoRooms(t *testing.T, hub *Hub) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.registry.Rooms()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("rooms never drained: %v", hub.registry.Rooms())
}

func TestUpdateRelayedToRoomExceptSender(t *testing.T) {
	hub, url := newTestServer(t)

	conn1 := dial(t, url)
	conn2 := dial(t, url)
	conn3 := dial(t, url)

	send(t, conn1, ClientMessageSubscribe, "list:abc", nil)
	send(t, conn2, ClientMessageSubscribe, "list:abc", nil)
	send(t, conn3, ClientMessageSubscribe, "list:abc", nil)
	waitForMembers(t, hub, "list:abc", 3)

	payload := map[string]interface{}{"item": "milk", "done": false}
	send(t, conn1, ClientMessageUpdate, "list:abc", payload)

	for _, conn := range []*gws.Conn{conn2, conn3} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageTypeUpdate, msg.Type)
		assert.JSONEq(t, `{"item":"milk","done":false}`, string(msg.Data))
	}
	assertSilent(t, conn1)
}

func TestServerSideBroadcastReachesAllMembers(t *testing.T) {
	hub, url := newTestServer(t)

	conn1 := dial(t, url)
	conn2 := dial(t, url)
	send(t, conn1, ClientMessageSubscribe, "recipe:tok", nil)
	send(t, conn2, ClientMessageSubscribe, "recipe:tok", nil)
	waitForMembers(t, hub, "recipe:tok", 2)

	hub.BroadcastToRoom("recipe:tok", MessageTypeUpdate, map[string]string{"id": "r1"}, nil)

	for _, conn := range []*gws.Conn{conn1, conn2} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageTypeUpdate, msg.Type)
		assert.JSONEq(t, `{"id":"r1"}`, string(msg.Data))
	}
}

func TestUpdateForUnsubscribedRoomIsDropped(t *testing.T) {
	hub, url := newTestServer(t)

	sender := dial(t, url)
	listener := dial(t, url)

	send(t, sender, ClientMessageSubscribe, "list:mine", nil)
	send(t, listener, ClientMessageSubscribe, "list:other", nil)
	waitForMembers(t, hub, "list:mine", 1)
	waitForMembers(t, hub, "list:other", 1)

	// The sender never joined list:other, so this must not be relayed.
	send(t, sender, ClientMessageUpdate, "list:other", map[string]string{"sneak": "yes"})
	assertSilent(t, listener)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub, url := newTestServer(t)

	conn := dial(t, url)
	send(t, conn, ClientMessageSubscribe, "list:abc", nil)
	waitForMembers(t, hub, "list:abc", 1)

	send(t, conn, ClientMessageUnsubscribe, "list:abc", nil)
	waitForNoRooms(t, hub)

	hub.BroadcastToRoom("list:abc", MessageTypeUpdate, "late", nil)
	assertSilent(t, conn)
}

func TestMalformedMessageDoesNotKillSession(t *testing.T) {
	hub, url := newTestServer(t)

	conn := dial(t, url)
	other := dial(t, url)

	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(`{"data":{"room":"x"}}`)))

	// The session survives both frames and can still subscribe.
	send(t, conn, ClientMessageSubscribe, "list:abc", nil)
	send(t, other, ClientMessageSubscribe, "list:abc", nil)
	waitForMembers(t, hub, "list:abc", 2)

	send(t, other, ClientMessageUpdate, "list:abc", "hello")
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeUpdate, msg.Type)
}

func TestDisconnectCleansUpMemberships(t *testing.T) {
	hub, url := newTestServer(t)

	stayer := dial(t, url)
	leaver := dial(t, url)

	send(t, stayer, ClientMessageSubscribe, "list:abc", nil)
	send(t, leaver, ClientMessageSubscribe, "list:abc", nil)
	send(t, leaver, ClientMessageSubscribe, "recipe:xyz", nil)
	waitForMembers(t, hub, "list:abc", 2)
	waitForMembers(t, hub, "recipe:xyz", 1)

	leaver.Close()
	waitForMembers(t, hub, "list:abc", 1)

	// The solely-occupied room is pruned, the shared one keeps going.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.registry.Rooms()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, []string{"list:abc"}, hub.registry.Rooms())

	hub.BroadcastToRoom("list:abc", MessageTypeUpdate, "still here", nil)
	msg := readMessage(t, stayer)
	assert.Equal(t, MessageTypeUpdate, msg.Type)

	stayer.Close()
	waitForNoRooms(t, hub)
}
