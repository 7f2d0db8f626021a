package handler

import (
	"context"
	"fmt"
	"net/http"

	"bidbook/internal/chat"
	model "bidbook/internal/models"
	"bidbook/services/marketplace/helpers"
	"bidbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type ConversationServiceInterface interface {
	FindByBid(ctx context.Context, bidID string) (model.Conversation, error)
	ForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	Messages(ctx context.Context, conversationID, requesterID string) ([]model.Message, error)
	UnreadMessages(ctx context.Context, conversationID, readerID string) ([]model.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string) error
}

type ConversationHandler struct {
	service ConversationServiceInterface
	hub     *chat.Hub
	upgrade websocket.Upgrader
}

func NewConversationHandler(service ConversationServiceInterface, hub *chat.Hub) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		hub:     hub,
		upgrade: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ListConversationsHandler handles GET /users/:user_id/conversations
func (h *ConversationHandler) ListConversationsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	convs, err := h.service.ForUser(c.Request.Context(), userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListConversationsHandler: error retrieving conversations", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	if convs == nil {
		convs = []model.Conversation{}
	}

	utils.JSONResponse(c, http.StatusOK, convs, "conversations retrieved successfully")
}

// GetConversationByBidHandler handles GET /bids/:bid_id/conversation
func (h *ConversationHandler) GetConversationByBidHandler(c *gin.Context) {
	bidID := c.Param("bid_id")
	conv, err := h.service.FindByBid(c.Request.Context(), bidID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetConversationByBidHandler: error retrieving conversation", map[string]any{"bid_id": bidID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, conv, "conversation retrieved successfully")
}

// GetMessagesHandler handles GET /conversations/:conversation_id/messages?user_id=
func (h *ConversationHandler) GetMessagesHandler(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := c.Query("user_id")
	if userID == "" {
		utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("missing user_id query parameter"), "missing user_id query parameter")
		return
	}

	msgs, err := h.service.Messages(c.Request.Context(), conversationID, userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetMessagesHandler: error retrieving messages", map[string]any{
			"conversation_id": conversationID,
			"user_id":         userID,
			"error":           err.Error(),
		})
		return
	}

	if msgs == nil {
		msgs = []model.Message{}
	}

	utils.JSONResponse(c, http.StatusOK, msgs, "messages retrieved successfully")
}

// GetUnreadMessagesHandler handles GET /conversations/:conversation_id/unread?user_id=
func (h *ConversationHandler) GetUnreadMessagesHandler(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := c.Query("user_id")
	if userID == "" {
		utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("missing user_id query parameter"), "missing user_id query parameter")
		return
	}

	msgs, err := h.service.UnreadMessages(c.Request.Context(), conversationID, userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetUnreadMessagesHandler: error retrieving unread messages", map[string]any{
			"conversation_id": conversationID,
			"user_id":         userID,
			"error":           err.Error(),
		})
		return
	}

	if msgs == nil {
		msgs = []model.Message{}
	}

	utils.JSONResponse(c, http.StatusOK, msgs, "unread messages retrieved successfully")
}

// MarkConversationReadHandler handles POST /conversations/:conversation_id/read
func (h *ConversationHandler) MarkConversationReadHandler(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	var req helpers.MarkConversationReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "MarkConversationReadHandler", err)
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), conversationID, req.UserID); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("MarkConversationReadHandler: failed to mark read", map[string]any{
			"conversation_id": conversationID,
			"user_id":         req.UserID,
			"error":           err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"conversation_id": conversationID}, "messages marked read")
}

// ChatSocketHandler handles GET /ws/chat?user_id= and upgrades the
// connection for live messaging. The client owns the socket after the
// upgrade; errors past this point go over the socket, not HTTP.
func (h *ConversationHandler) ChatSocketHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("missing user_id query parameter"), "missing user_id query parameter")
		return
	}

	conn, err := h.upgrade.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("ChatSocketHandler: upgrade failed", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	client := chat.NewClient(h.hub, conn, userID)
	helpers.LogSuccess("ChatSocketHandler", "chat socket connected", map[string]any{
		"client_id": client.ID,
		"user_id":   userID,
	})
}
