package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	model "bidbook/internal/models"
	"bidbook/internal/notifications"
	"bidbook/services/marketplace/helpers"
	"bidbook/utils"

	"github.com/gin-gonic/gin"
)

const streamHeartbeat = 30 * time.Second

type NotificationServiceInterface interface {
	NotificationsForUser(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
	Delete(ctx context.Context, notificationID string) error
	Registry() *notifications.Registry
}

type NotificationHandler struct {
	service NotificationServiceInterface
}

func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// ListNotificationsHandler handles GET /users/:user_id/notifications
func (h *NotificationHandler) ListNotificationsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	notifs, err := h.service.NotificationsForUser(c.Request.Context(), userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListNotificationsHandler: error retrieving notifications", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	if notifs == nil {
		notifs = []model.Notification{}
	}

	utils.JSONResponse(c, http.StatusOK, notifs, "notifications retrieved successfully")
	helpers.LogSuccess("ListNotificationsHandler", "notifications retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(notifs),
	})
}

// MarkNotificationReadHandler handles POST /notifications/:notification_id/read
func (h *NotificationHandler) MarkNotificationReadHandler(c *gin.Context) {
	notificationID := c.Param("notification_id")
	if err := h.service.MarkRead(c.Request.Context(), notificationID); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("MarkNotificationReadHandler: failed to mark read", map[string]any{"notification_id": notificationID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"notification_id": notificationID}, "notification marked read")
}

// DeleteNotificationHandler handles DELETE /notifications/:notification_id
func (h *NotificationHandler) DeleteNotificationHandler(c *gin.Context) {
	notificationID := c.Param("notification_id")
	if err := h.service.Delete(c.Request.Context(), notificationID); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("DeleteNotificationHandler: failed to delete", map[string]any{"notification_id": notificationID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"notification_id": notificationID}, "notification deleted")
}

// StreamNotificationsHandler handles GET /notifications/stream?user_id=
// as a server-sent events feed. The subscription lives for the duration
// of the request; missed events are still available via the list
// endpoint.
func (h *NotificationHandler) StreamNotificationsHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("missing user_id query parameter"), "missing user_id query parameter")
		return
	}

	ch, cancel := h.service.Registry().Subscribe(userID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	utils.Info("StreamNotificationsHandler: stream opened", map[string]any{"user_id": userID})

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})

	utils.Info("StreamNotificationsHandler: stream closed", map[string]any{"user_id": userID})
}
