package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix namespaces the per-room pub/sub channels.
const DefaultChannelPrefix = "story:room:"

// Envelope carries one frame between instances. Origin is the publishing
// hub's id so a hub can skip its own frames.
type Envelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Frame  json.RawMessage `json:"frame"`
}

// Backplane relays frames between hub instances.
type Backplane interface {
	Publish(ctx context.Context, env Envelope) error
	// Listen starts a subscription and returns once it is live. The channel
	// is closed when ctx ends.
	Listen(ctx context.Context) (<-chan Envelope, error)
	Close() error
}

// RedisBackplane implements Backplane over Redis pub/sub, one channel per
// room.
type RedisBackplane struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	Prefix   string
}

// NewRedisBackplane connects to Redis and pings it.
func NewRedisBackplane(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisBackplane, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("realtime: redis addr is required")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("realtime: pinging redis: %w", err)
	}
	return &RedisBackplane{client: client, prefix: prefix, logger: logger}, nil
}

func (b *RedisBackplane) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("realtime: encoding envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.prefix+env.Room, payload).Err(); err != nil {
		return fmt.Errorf("realtime: publishing to room %s: %w", env.Room, err)
	}
	return nil
}

func (b *RedisBackplane) Listen(ctx context.Context) (<-chan Envelope, error) {
	sub := b.client.PSubscribe(ctx, b.prefix+"*")
	// The first reply confirms the subscription.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("realtime: subscribing: %w", err)
	}

	out := make(chan Envelope)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Warn("discarding malformed backplane message",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				if env.Room == "" {
					env.Room = strings.TrimPrefix(msg.Channel, b.prefix)
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *RedisBackplane) Close() error {
	return b.client.Close()
}
