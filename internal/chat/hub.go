package chat

import (
	"context"
	"encoding/json"
	"sync"

	model "bidbook/internal/models"
	"bidbook/utils"
)

// Frame is the envelope exchanged over the chat socket
type Frame struct {
	Event          string          `json:"event"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Content        string          `json:"content,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// ConversationService is the slice of the conversation service the hub
// needs for inbound frames.
type ConversationService interface {
	SendMessage(ctx context.Context, conversationID, senderID, content string) (model.Message, error)
	Messages(ctx context.Context, conversationID, requesterID string) ([]model.Message, error)
	UnreadMessages(ctx context.Context, conversationID, readerID string) ([]model.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string) error
}

// Hub manages all chat WebSocket connections, keyed by user id. It is
// the process-wide registry for live chat delivery: clients insert on
// connect and are removed on disconnect.
type Hub struct {
	convs ConversationService

	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // key: userID -> connected clients
}

// NewHub creates a hub bound to the conversation service
func NewHub(convs ConversationService) *Hub {
	return &Hub{
		convs:      convs,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]map[*Client]struct{}),
	}
}

// Run processes connect/disconnect events. Run it in a goroutine; it
// returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.UserID] = set
	}
	set[client] = struct{}{}
	h.mu.Unlock()

	utils.Info("chat: client connected", map[string]any{
		"client_id": client.ID,
		"user_id":   client.UserID,
	})
	go client.writePump()
	go client.readPump()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if set, ok := h.clients[client.UserID]; ok {
		if _, present := set[client]; present {
			delete(set, client)
			close(client.send)
		}
		if len(set) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	h.mu.Unlock()

	client.conn.Close()
	utils.Info("chat: client disconnected", map[string]any{
		"client_id": client.ID,
		"user_id":   client.UserID,
	})
}

// PushMessage delivers a stored message to the user's live clients.
// Returns true when at least one client received it.
func (h *Hub) PushMessage(userID string, msg model.Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	return h.send(userID, Frame{Event: "new_message", ConversationID: msg.ConversationID, Data: data})
}

// send pushes a frame to every live client of the user; slow clients
// are disconnected rather than allowed to block the rest
func (h *Hub) send(userID string, frame Frame) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		return false
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := false
	for _, c := range clients {
		select {
		case c.send <- payload:
			delivered = true
		default:
			go func(stale *Client) { h.unregister <- stale }(c)
		}
	}
	return delivered
}

// Connected reports whether the user has at least one open socket
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
