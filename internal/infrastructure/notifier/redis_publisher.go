package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Notification is the payload published for the notification collaborator
type Notification struct {
	RecipientID uuid.UUID              `json:"recipient_id"`
	Message     string                 `json:"message"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	PublishedAt time.Time              `json:"published_at"`
}

// RedisPublisher hands notifications to the delivery service over Redis pub/sub
type RedisPublisher struct {
	redisClient *redis.Client
	channel     string
}

func NewRedisPublisher(redisClient *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		redisClient: redisClient,
		channel:     channel,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, recipientID uuid.UUID, message string, metadata map[string]interface{}) error {
	payload, err := json.Marshal(Notification{
		RecipientID: recipientID,
		Message:     message,
		Metadata:    metadata,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	if err := p.redisClient.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}
