package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"grocery-sync/internal/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// ClientMessage represents incoming messages from clients
type ClientMessage struct {
	Type string            `json:"type"`
	Data ClientMessageData `json:"data"`
}

type ClientMessageData struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// Client message types
const (
	ClientMessageSubscribe   = "subscribe"
	ClientMessageUnsubscribe = "unsubscribe"
	ClientMessageUpdate      = "update"
)

// Client is one live connection's session. It tracks the rooms the
// connection joined so that membership can be torn down exactly once when
// the connection goes away, whichever path closes it.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan Message
	done chan struct{}

	mu    sync.Mutex
	rooms map[string]bool

	closeOnce sync.Once
}

// readPump pumps messages from the websocket connection into the hub.
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var clientMessage ClientMessage
		if err := json.Unmarshal(messageBytes, &clientMessage); err != nil {
			// One bad frame must not kill the session.
			logger.Sugar.Warnf("Failed to unmarshal client message: %v", err)
			continue
		}

		c.handleClientMessage(clientMessage)
	}
}

// handleClientMessage processes incoming messages from the client
func (c *Client) handleClientMessage(message ClientMessage) {
	room := message.Data.Room

	switch message.Type {
	case ClientMessageSubscribe:
		if room == "" {
			logger.Sugar.Warnf("Client %s sent subscribe without a room", c.id)
			return
		}
		c.hub.registry.Join(room, c)
		c.mu.Lock()
		c.rooms[room] = true
		c.mu.Unlock()
		logger.Sugar.Infof("Client %s subscribed to room %s", c.id, room)

	case ClientMessageUnsubscribe:
		if room == "" {
			return
		}
		c.hub.registry.Leave(room, c)
		c.mu.Lock()
		delete(c.rooms, room)
		c.mu.Unlock()
		logger.Sugar.Infof("Client %s unsubscribed from room %s", c.id, room)

	case ClientMessageUpdate:
		// Forward only for rooms this session actually joined; stale or
		// spoofed room names are dropped without an error.
		c.mu.Lock()
		subscribed := c.rooms[room]
		c.mu.Unlock()
		if !subscribed {
			return
		}
		c.hub.BroadcastToRoom(room, MessageTypeUpdate, message.Data.Payload, c)

	default:
		logger.Sugar.Warnf("Unknown client message type: %q", message.Type)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver hands a message to the session's write pump without blocking the
// broadcaster. It reports false when the session is closed or its buffer is
// full.
func (c *Client) deliver(message Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// close tears the session down: every joined room is left and the transport
// is closed. Guarded so the cleanup runs exactly once no matter which exit
// path got here first.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		rooms := make([]string, 0, len(c.rooms))
		for room := range c.rooms {
			rooms = append(rooms, room)
		}
		c.rooms = make(map[string]bool)
		c.mu.Unlock()

		for _, room := range rooms {
			c.hub.registry.Leave(room, c)
		}
		c.conn.Close()
		logger.Sugar.Infof("Client %s disconnected", c.id)
	})
}
