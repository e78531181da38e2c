package events

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"spot-trading-bot/internal/logger"
)

const publishTimeout = 2 * time.Second

// publisher is the part of the redis client the publisher needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher pushes every event as JSON to a Redis pub/sub channel for
// dashboards and other consumers.
type RedisPublisher struct {
	client  publisher
	channel string
	closer  func() error
}

type RedisConfig struct {
	Addr    string
	DB      int
	Channel string
}

func NewRedisPublisher(cfg RedisConfig) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisPublisher{client: client, channel: cfg.Channel, closer: client.Close}
}

// Ping checks connectivity once at startup.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if c, ok := p.client.(*redis.Client); ok {
		return c.Ping(ctx).Err()
	}
	return nil
}

// Handle is a Subscriber. Failures are logged, never returned to the engine.
func (p *RedisPublisher) Handle(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Warn(ctx, "Failed to encode event", "type", string(ev.Type), "error", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.client.Publish(pubCtx, p.channel, payload).Err(); err != nil {
		logger.Warn(ctx, "Failed to publish event", "type", string(ev.Type), "channel", p.channel, "error", err)
	}
}

func (p *RedisPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
