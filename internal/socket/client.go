// internal/socket/client.go
package socket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Client represents a WebSocket client connection
type Client struct {
	ID     string
	UserID string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	Rooms  map[string]bool
	mu     sync.Mutex
}

// NewClient creates a new WebSocket client
func NewClient(id, userID string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Rooms:  make(map[string]bool),
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Client] WebSocket error: user=%s, error=%v", c.UserID, err)
			}
			break
		}

		c.handleMessage(rawMessage)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain any queued messages into the same frame
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(rawMessage []byte) {
	var msg Message
	if err := json.Unmarshal(rawMessage, &msg); err != nil {
		log.Printf("[Client] Invalid message format: user=%s, error=%v", c.UserID, err)
		return
	}

	switch msg.Type {
	case MessagePong:
		// Client responded to ping, nothing to do

	case "join_pocket":
		if pocketID, ok := msg.Payload["pocketId"].(string); ok {
			c.Hub.JoinRoom(c, PocketRoom(pocketID))
			c.sendAck("joined_pocket", pocketID)
		}

	case "leave_pocket":
		if pocketID, ok := msg.Payload["pocketId"].(string); ok {
			c.Hub.LeaveRoom(c, PocketRoom(pocketID))
			c.sendAck("left_pocket", pocketID)
		}

	default:
		log.Printf("[Client] Unknown message type: user=%s, type=%s", c.UserID, msg.Type)
	}
}

func (c *Client) sendAck(action, target string) {
	msg := Message{
		Type: MessageAck,
		Payload: map[string]interface{}{
			"action": action,
			"target": target,
		},
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case c.Send <- data:
	default:
	}
}

// PocketRoom returns the room name for a pocket
func PocketRoom(pocketID string) string {
	return "pocket:" + pocketID
}

// UserRoom returns the room name for a user's personal channel
func UserRoom(userID string) string {
	return "user:" + userID
}
