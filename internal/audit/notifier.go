package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const alertChannel = "auth:alerts"

// RedisNotifier publishes security alerts on a redis pub/sub channel so
// out-of-process consumers (dashboards, pagers) can react.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Publish(ctx context.Context, userID string, event string) error {
	payload, err := json.Marshal(map[string]any{
		"user_id": userID,
		"event":   event,
		"at":      time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	if err := n.client.Publish(ctx, alertChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}
