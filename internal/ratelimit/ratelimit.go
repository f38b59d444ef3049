package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter kept in Redis. A nil client allows
// everything.
type Limiter struct {
	redis  *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func New(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{redis: client, prefix: prefix, limit: limit, window: window}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.redis == nil || l.limit <= 0 {
		return true, nil
	}
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.prefix, key)
	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.limit), nil
}
