// internal/socket/hub.go
package socket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Membership lifecycle messages
	MessageInviteReceived  MessageType = "invite_received"
	MessageInviteCancelled MessageType = "invite_cancelled"
	MessageMemberJoined    MessageType = "member_joined"
	MessageMemberLeft      MessageType = "member_left"
	MessageMemberBanned    MessageType = "member_banned"
	MessageMasterChanged   MessageType = "master_changed"

	// Pocket messages
	MessagePocketUpdated MessageType = "pocket_updated"
	MessagePocketDeleted MessageType = "pocket_deleted"

	// User presence
	MessageUserOnline  MessageType = "user_online"
	MessageUserOffline MessageType = "user_offline"

	// System messages
	MessagePing MessageType = "ping"
	MessagePong MessageType = "pong"
	MessageAck  MessageType = "ack"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType            `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients indexed by user ID for direct messaging
	userClients map[string]map[*Client]bool

	// Clients indexed by room for broadcasting
	roomClients map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast to all clients
	broadcast chan []byte

	// Broadcast to specific room
	roomBroadcast chan *RoomMessage

	// Direct message to specific user
	directMessage chan *DirectMessage

	mu sync.RWMutex
}

// RoomMessage represents a message to be sent to a specific room
type RoomMessage struct {
	Room    string
	Message []byte
	Exclude string // User ID to exclude from broadcast
}

// DirectMessage represents a message to be sent to a specific user
type DirectMessage struct {
	UserID  string
	Message []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		userClients:   make(map[string]map[*Client]bool),
		roomClients:   make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan []byte, 256),
		roomBroadcast: make(chan *RoomMessage, 256),
		directMessage: make(chan *DirectMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	log.Println("[Hub] WebSocket hub started")

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToAll(message)

		case rm := <-h.roomBroadcast:
			h.broadcastToRoom(rm)

		case dm := <-h.directMessage:
			h.sendToUser(dm)

		case <-pingTicker.C:
			h.pingClients()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.userClients[client.UserID] == nil {
		h.userClients[client.UserID] = make(map[*Client]bool)
	}
	h.userClients[client.UserID][client] = true

	log.Printf("[Hub] ✅ Client registered: user=%s, id=%s, total_clients=%d",
		client.UserID, client.ID, len(h.clients))

	go h.BroadcastUserStatus(client.UserID, true)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)

		if clients, ok := h.userClients[client.UserID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.userClients, client.UserID)
				// User went offline (no more connections)
				go h.BroadcastUserStatus(client.UserID, false)
			}
		}

		for room := range client.Rooms {
			if clients, ok := h.roomClients[room]; ok {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.roomClients, room)
				}
			}
		}

		close(client.Send)
		log.Printf("[Hub] ❌ Client disconnected: user=%s, id=%s, total_clients=%d",
			client.UserID, client.ID, len(h.clients))
	}
}

func (h *Hub) broadcastToAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

func (h *Hub) broadcastToRoom(rm *RoomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.roomClients[rm.Room]
	if !ok {
		return
	}

	for client := range clients {
		if rm.Exclude != "" && client.UserID == rm.Exclude {
			continue
		}
		select {
		case client.Send <- rm.Message:
		default:
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

func (h *Hub) sendToUser(dm *DirectMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.userClients[dm.UserID]
	if !ok {
		return
	}

	for client := range clients {
		select {
		case client.Send <- dm.Message:
		default:
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

func (h *Hub) pingClients() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{
		Type:      MessagePing,
		Timestamp: time.Now(),
	}
	data, _ := json.Marshal(msg)

	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// ============================================
// Public Methods for Room Management
// ============================================

// JoinRoom adds a client to a room
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	client.Rooms[room] = true
	client.mu.Unlock()

	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true

	log.Printf("[Hub] 👥 Client joined room: user=%s, room=%s", client.UserID, room)
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.Rooms, room)
	client.mu.Unlock()

	if clients, ok := h.roomClients[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roomClients, room)
		}
	}

	log.Printf("[Hub] 👋 Client left room: user=%s, room=%s", client.UserID, room)
}

// ============================================
// Public Methods for Sending Messages
// ============================================

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID string, msgType MessageType, payload map[string]interface{}) {
	msg := Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Hub] Error marshaling message: %v", err)
		return
	}

	h.directMessage <- &DirectMessage{
		UserID:  userID,
		Message: data,
	}
}

// SendToRoom broadcasts a message to all clients in a room
func (h *Hub) SendToRoom(room string, msgType MessageType, payload map[string]interface{}, excludeUserID string) {
	msg := Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Hub] Error marshaling message: %v", err)
		return
	}

	h.roomBroadcast <- &RoomMessage{
		Room:    room,
		Message: data,
		Exclude: excludeUserID,
	}
}

// BroadcastUserStatus broadcasts user online/offline status
func (h *Hub) BroadcastUserStatus(userID string, online bool) {
	msgType := MessageUserOffline
	if online {
		msgType = MessageUserOnline
	}

	msg := Message{
		Type: msgType,
		Payload: map[string]interface{}{
			"userId": userID,
			"online": online,
		},
		Timestamp: time.Now(),
	}
	data, _ := json.Marshal(msg)
	h.broadcast <- data
}

// ============================================
// Query Methods
// ============================================

// IsUserOnline checks if a user is currently connected
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.userClients[userID]
	return ok
}

// GetConnectedClientsCount returns total connected clients
func (h *Hub) GetConnectedClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
