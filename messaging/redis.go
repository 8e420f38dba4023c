package messaging

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel events are published on.
const DefaultChannel = "pagetl:events"

// RedisPublisher publishes messages as JSON on a Redis channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// RedisConfig holds configuration for the Redis publisher.
type RedisConfig struct {
	URL     string // Redis connection URL (e.g., "redis://localhost:6379")
	Channel string // Channel to publish on (default: "pagetl:events")
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisPublisherFromClient(client, cfg.Channel), nil
}

// NewRedisPublisherFromClient creates a RedisPublisher from an existing Redis client.
func NewRedisPublisherFromClient(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Channel returns the channel messages go to.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish sends msg to the channel.
func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, string(data)).Err()
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Ping tests the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Verify RedisPublisher implements Publisher
var _ Publisher = (*RedisPublisher)(nil)
