// Package redis carries the live audit feed over Redis pub/sub.
package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// feedBuffer is how many undelivered records a subscriber may lag behind
// before newer records are dropped for it.
const feedBuffer = 64

type PubSub struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (ps *PubSub) Ping(ctx context.Context) error {
	if err := ps.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Ping: %w", err)
	}
	return nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// Subscribe streams payloads published on channel until ctx ends or the
// returned cancel func is called.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	return ps.listen(ctx, ps.client.Subscribe(ctx, channel), channel)
}

// SubscribePattern is Subscribe for a glob pattern such as KindAuditPattern.
func (ps *PubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan []byte, func(), error) {
	return ps.listen(ctx, ps.client.PSubscribe(ctx, pattern), pattern)
}

func (ps *PubSub) listen(ctx context.Context, sub *redis.PubSub, name string) (<-chan []byte, func(), error) {
	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe %s: receive confirmation: %w", name, err)
	}

	out := make(chan []byte, feedBuffer)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		var dropped int
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				// A stalled reader must not hold up Redis; it loses records
				// instead and can catch up from the audit API.
				select {
				case out <- []byte(msg.Payload):
				default:
					dropped++
					if dropped == 1 || dropped%feedBuffer == 0 {
						log.Warn().Str("subscription", name).Int("dropped", dropped).Msg("redis: slow audit feed subscriber")
					}
				}
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}

	return out, cancel, nil
}

// AuditChannel returns the Redis channel carrying every appended audit record.
func AuditChannel() string {
	return "audit:records"
}

// EntityAuditChannel returns the Redis channel for audit records of one entity.
func EntityAuditChannel(kind string, entityID uuid.UUID) string {
	return "audit:" + kind + ":" + entityID.String()
}

// KindAuditPattern matches the entity channels of every entity of one kind.
func KindAuditPattern(kind string) string {
	return "audit:" + kind + ":*"
}
