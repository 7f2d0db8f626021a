package notifications

import (
	"context"
	"fmt"
	"time"

	"bidbook/internal/mail"
	model "bidbook/internal/models"
	"bidbook/internal/repository"
	"bidbook/utils"
)

// Request describes a notification to dispatch
type Request struct {
	UserID  string
	Type    model.NotificationType
	Message string
	Data    map[string]any
}

// Publisher fans a notification out to subscribers on other instances.
// The local registry is fed by the matching subscriber loop.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

// Dispatcher persists notifications and pushes them to connected
// clients. Persistence is unconditional; live push and email are
// best-effort side channels that never fail the dispatch.
type Dispatcher struct {
	store     repository.NotificationStore
	users     repository.UserStore
	registry  *Registry
	publisher Publisher   // optional cross-instance fanout
	mailer    mail.Sender // optional email for selected event types
}

// NewDispatcher creates a dispatcher. publisher and mailer may be nil.
func NewDispatcher(store repository.NotificationStore, users repository.UserStore, registry *Registry, publisher Publisher, mailer mail.Sender) *Dispatcher {
	return &Dispatcher{
		store:     store,
		users:     users,
		registry:  registry,
		publisher: publisher,
		mailer:    mailer,
	}
}

// Registry exposes the live push registry for streaming endpoints
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Notify persists the notification and delivers it live when possible
func (d *Dispatcher) Notify(ctx context.Context, req Request) (model.Notification, error) {
	n := model.Notification{
		NotificationID: utils.GenerateID(),
		UserID:         req.UserID,
		Type:           req.Type,
		Message:        req.Message,
		Data:           req.Data,
		Read:           false,
		CreatedAt:      time.Now().UTC(),
	}

	if err := d.store.CreateNotification(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("dispatcher: failed to store notification for user %s: %w", req.UserID, err)
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, n); err != nil {
			utils.Warn("dispatcher: fanout publish failed, delivering locally", map[string]any{
				"user_id": n.UserID,
				"error":   err.Error(),
			})
			d.registry.Push(n.UserID, n)
		}
	} else {
		d.registry.Push(n.UserID, n)
	}

	d.maybeEmail(ctx, n)

	return n, nil
}

// maybeEmail sends a courtesy email for the events a user would not
// want to miss while offline. Failures are logged and absorbed.
func (d *Dispatcher) maybeEmail(ctx context.Context, n model.Notification) {
	if d.mailer == nil {
		return
	}
	switch n.Type {
	case model.NotificationAuctionWon, model.NotificationBookSold:
	default:
		return
	}

	user, err := d.users.GetUser(ctx, n.UserID)
	if err != nil || user.Email == "" {
		return
	}
	if err := d.mailer.Send(user.Email, string(n.Type), n.Message); err != nil {
		utils.Warn("dispatcher: notification email failed", map[string]any{
			"user_id": n.UserID,
			"type":    string(n.Type),
			"error":   err.Error(),
		})
	}
}

// NotificationsForUser lists the user's persisted notifications, newest first
func (d *Dispatcher) NotificationsForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("dispatcher: empty user ID")
	}
	notifs, err := d.store.NotificationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: failed to list notifications for user %s: %w", userID, err)
	}
	return notifs, nil
}

// MarkRead flips the read flag on a single notification
func (d *Dispatcher) MarkRead(ctx context.Context, notificationID string) error {
	if err := d.store.MarkNotificationRead(ctx, notificationID); err != nil {
		return fmt.Errorf("dispatcher: failed to mark notification %s read: %w", notificationID, err)
	}
	return nil
}

// Delete removes a persisted notification. The live push channel is
// unaffected.
func (d *Dispatcher) Delete(ctx context.Context, notificationID string) error {
	if err := d.store.DeleteNotification(ctx, notificationID); err != nil {
		return fmt.Errorf("dispatcher: failed to delete notification %s: %w", notificationID, err)
	}
	return nil
}
