package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"bidbook/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one WebSocket connection for a user
type Client struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewClient wraps an upgraded connection and registers it with the hub
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	client := &Client{
		ID:     utils.GenerateID(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	hub.register <- client
	return client
}

// writePump forwards queued frames to the socket and keeps the
// connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump parses inbound frames and dispatches them to the
// conversation service
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.Warn("chat: read error", map[string]any{
					"client_id": c.ID,
					"user_id":   c.UserID,
					"error":     err.Error(),
				})
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.reply(Frame{Event: "error", Error: "malformed frame"})
			continue
		}
		c.handle(frame)
	}
}

// handle dispatches one inbound frame
func (c *Client) handle(frame Frame) {
	ctx := context.Background()

	switch frame.Event {
	case "send_message":
		msg, err := c.hub.convs.SendMessage(ctx, frame.ConversationID, c.UserID, frame.Content)
		if err != nil {
			c.reply(Frame{Event: "error", ConversationID: frame.ConversationID, Error: err.Error()})
			return
		}
		data, _ := json.Marshal(msg)
		c.reply(Frame{Event: "message_sent", ConversationID: frame.ConversationID, Data: data})

	case "get_messages":
		msgs, err := c.hub.convs.Messages(ctx, frame.ConversationID, c.UserID)
		if err != nil {
			c.reply(Frame{Event: "error", ConversationID: frame.ConversationID, Error: err.Error()})
			return
		}
		data, _ := json.Marshal(msgs)
		c.reply(Frame{Event: "messages", ConversationID: frame.ConversationID, Data: data})

	case "get_unread":
		msgs, err := c.hub.convs.UnreadMessages(ctx, frame.ConversationID, c.UserID)
		if err != nil {
			c.reply(Frame{Event: "error", ConversationID: frame.ConversationID, Error: err.Error()})
			return
		}
		data, _ := json.Marshal(msgs)
		c.reply(Frame{Event: "unread_messages", ConversationID: frame.ConversationID, Data: data})

	case "mark_read":
		if err := c.hub.convs.MarkRead(ctx, frame.ConversationID, c.UserID); err != nil {
			c.reply(Frame{Event: "error", ConversationID: frame.ConversationID, Error: err.Error()})
			return
		}
		c.reply(Frame{Event: "read_ack", ConversationID: frame.ConversationID})

	default:
		c.reply(Frame{Event: "error", Error: "unknown event"})
	}
}

// reply queues a frame for this client only
func (c *Client) reply(frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
