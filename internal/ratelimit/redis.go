package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares windows across server instances. The first hit of a
// window sets the key expiry; the key's TTL is the time left in the window.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "claims:ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	key = s.prefix + key

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
	}
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}

	resetIn := ttl
	if resetIn < 0 {
		// Key without expiry left behind by an interrupted writer.
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		resetIn = window
	}
	return int(count), resetIn, nil
}
