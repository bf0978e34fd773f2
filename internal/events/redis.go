package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the pub/sub connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisPublisher publishes events on redis channels named after the event kind.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisClient opens a client and verifies the connection.
func NewRedisClient(ctx context.Context, conf RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", conf.Addr, err)
	}
	return client, nil
}

// NewRedisPublisher wraps an existing client. prefix is prepended to channel names.
func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		prefix: prefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Channel returns the redis channel used for kind.
func (p *RedisPublisher) Channel(kind Kind) string {
	return p.prefix + string(kind)
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(event.Kind), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Kind, err)
	}
	return nil
}

// Subscribe streams decoded events of the given kinds until ctx is cancelled.
// Undecodable payloads are skipped.
func (p *RedisPublisher) Subscribe(ctx context.Context, kinds ...Kind) (<-chan Event, func() error) {
	channels := make([]string, 0, len(kinds))
	for _, k := range kinds {
		channels = append(channels, p.Channel(k))
	}
	sub := p.client.Subscribe(ctx, channels...)
	out := make(chan Event)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close
}
