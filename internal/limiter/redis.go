package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCmdable is the subset of redis.Cmdable used here.
type redisCmdable interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// Redis keeps one expiring key per client; its TTL is the cooldown.
type Redis struct {
	rdb    redisCmdable
	window time.Duration
	prefix string
}

// NewRedis builds a redis-backed limiter. rdb is usually a *redis.Client.
func NewRedis(rdb redisCmdable, window time.Duration) *Redis {
	if window <= 0 {
		window = time.Minute
	}
	return &Redis{rdb: rdb, window: window, prefix: "submit_cooldown:"}
}

// Allow sets the cooldown key if absent; otherwise reports its remaining TTL.
func (l *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key
	ok, err := l.rdb.SetNX(ctx, k, time.Now().UTC().Format(time.RFC3339Nano), l.window).Result()
	if err != nil {
		return false, 0, err
	}
	if ok {
		return true, 0, nil
	}
	ttl, err := l.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl <= 0 {
		// key without expiry or just expired
		ttl = l.window
	}
	return false, ttl, nil
}
