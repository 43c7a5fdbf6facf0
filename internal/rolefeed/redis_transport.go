package rolefeed

import (
	"context"
	"fmt"

	"github.com/minimartapp/minimart-backend/pkg/redis"
)

// RedisTransport adapts the shared Redis client to the bridge's Transport.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport wraps the provided redis client.
func NewRedisTransport(client *redis.Client) (*RedisTransport, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisTransport{client: client}, nil
}

// Publish sends the payload on the channel.
func (t *RedisTransport) Publish(ctx context.Context, channel, payload string) error {
	return t.client.Publish(ctx, channel, payload)
}

// Subscribe opens a subscription and adapts its messages to plain strings.
func (t *RedisTransport) Subscribe(ctx context.Context, channel string) (<-chan string, func() error, error) {
	sub, err := t.client.Subscribe(ctx, channel)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, sub.Close, nil
}
