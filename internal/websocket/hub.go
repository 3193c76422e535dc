package websocket

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"grocery-sync/internal/logger"
)

// Message is the outbound frame written to subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const MessageTypeUpdate = "update"

// Hub owns the room registry and fans updates out to live connections.
type Hub struct {
	registry *Registry
}

func NewHub() *Hub {
	return &Hub{registry: NewRegistry()}
}

// BroadcastToRoom delivers a message to every member of a room except the
// originating connection. Delivery is best-effort per recipient: a client
// that cannot take the message is dropped and the remaining members still
// receive it. Nothing is queued or retried for absent subscribers; they
// catch up through a full fetch when they reconnect.
func (h *Hub) BroadcastToRoom(room, messageType string, data interface{}, exclude *Client) {
	message := Message{Type: messageType, Data: data}
	for _, client := range h.registry.MembersExcept(room, exclude) {
		if !client.deliver(message) {
			logger.Sugar.Warnf("Client %s cannot receive in room %s, dropping connection", client.id, room)
			client.conn.Close()
		}
	}
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

// ServeWS upgrades the request and starts the connection's session.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Sugar.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:    generateClientID(),
		hub:   h,
		conn:  conn,
		send:  make(chan Message, 256),
		done:  make(chan struct{}),
		rooms: make(map[string]bool),
	}

	logger.Sugar.Infof("Client %s connected", client.id)

	go client.writePump()
	go client.readPump()
}

// generateClientID creates a unique client ID
func generateClientID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "client_" + hex.EncodeToString(bytes)
}
