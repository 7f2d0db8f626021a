package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	model "bidbook/internal/models"
	"bidbook/utils"
)

const channelPrefix = "notify:"

// RedisFanout distributes notifications over Redis Pub/Sub so that a
// user connected to any instance still receives live pushes.
// Channel pattern: "notify:{userID}".
type RedisFanout struct {
	client *redis.Client
}

// NewRedisFanout connects and pings the Redis server
func NewRedisFanout(addr, password string, db int) (*RedisFanout, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisFanout{client: rdb}, nil
}

// Publish sends the notification to the user's channel
func (f *RedisFanout) Publish(ctx context.Context, n model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("publish notification for user %s: %w", n.UserID, err)
	}
	if err := f.client.Publish(ctx, channelPrefix+n.UserID, payload).Err(); err != nil {
		return fmt.Errorf("publish notification for user %s: %w", n.UserID, err)
	}
	return nil
}

// Listen subscribes to every notification channel and feeds the local
// registry. Blocking; run in a goroutine. Returns when ctx is done.
func (f *RedisFanout) Listen(ctx context.Context, registry *Registry) error {
	pubsub := f.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var n model.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				utils.Warn("fanout: dropping malformed notification payload", map[string]any{
					"channel": msg.Channel,
					"error":   err.Error(),
				})
				continue
			}
			registry.Push(n.UserID, n)
		}
	}
}

// Close releases the Redis connection
func (f *RedisFanout) Close() error {
	return f.client.Close()
}
