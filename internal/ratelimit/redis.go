package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares counters between server instances through Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

// NewRedisLimiterFromURL parses a redis:// URL and checks the server answers.
func NewRedisLimiterFromURL(ctx context.Context, url, prefix string) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisLimiter(client, prefix), nil
}

// WithClock replaces the time source.
func (r *RedisLimiter) WithClock(now func() time.Time) *RedisLimiter {
	r.now = now
	return r
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, p Policy) (Decision, error) {
	if p.Limit <= 0 || p.Window <= 0 {
		return Decision{}, fmt.Errorf("invalid rate limit policy %+v", p)
	}
	idx, left := windowAt(r.now(), p.Window)
	redisKey := fmt.Sprintf("%s%s:%d", r.prefix, key, idx)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, left)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count request: %w", err)
	}
	return decide(incr.Val(), p, left), nil
}
