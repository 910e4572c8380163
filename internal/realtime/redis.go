package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"gpms-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisPublisher publishes events on the recipient's channel so every API
// instance can forward them to its own websocket clients.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	channel := Channel(event.RecipientID)
	logger.ExternalServiceCall("redis", "PUBLISH", "channel", channel)
	err = p.client.Publish(ctx, channel, payload).Err()
	logger.ExternalServiceResult("redis", "PUBLISH", err, "channel", channel)
	return err
}
