// Package resultlog publishes check results to Redis: the latest result per
// check is kept under a key with a TTL and every result is announced on a
// channel.
package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dbcheck/internal/check"
	"dbcheck/internal/config"
)

// Record is the payload stored and published for one check.
type Record struct {
	ID        string    `json:"id"`
	Check     string    `json:"check"`
	Target    string    `json:"target"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is the subset of *redis.Client used here.
type Client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

type RedisPublisher struct {
	client  Client
	ttl     time.Duration
	observe func(error)
}

func NewRedisPublisher(cfg config.RedisConfig) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewPublisherWithClient(client, cfg.ResultTTL)
}

func NewPublisherWithClient(client Client, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{client: client, ttl: ttl}
}

// WithObserver registers fn to be called with the outcome of every publish.
func (p *RedisPublisher) WithObserver(fn func(error)) *RedisPublisher {
	p.observe = fn
	return p
}

func StateKey(checkName string) string { return fmt.Sprintf("dbcheck:check:%s:latest", checkName) }

func Channel(checkName string) string { return fmt.Sprintf("dbcheck:check:%s", checkName) }

func (p *RedisPublisher) Publish(ctx context.Context, checkName, target string, res check.Result) error {
	err := p.publish(ctx, checkName, target, res)
	if p.observe != nil {
		p.observe(err)
	}
	return err
}

func (p *RedisPublisher) publish(ctx context.Context, checkName, target string, res check.Result) error {
	payload, err := json.Marshal(Record{
		ID:        uuid.NewString(),
		Check:     checkName,
		Target:    target,
		Success:   res.Success,
		Message:   res.Message,
		Timestamp: res.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := p.client.Set(ctx, StateKey(checkName), payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(checkName), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Noop discards results. It is used when no Redis address is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, check.Result) error { return nil }

func (Noop) Close() error { return nil }
