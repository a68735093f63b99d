package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts in Redis on window-bucketed keys, so concurrent
// gateway replicas share one limit. INCR is atomic; the bucket index in
// the key makes the window boundary deterministic across processes.
type RedisStore struct {
	rdb       *redis.Client
	keyPrefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, keyPrefix: "rl:"}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (Entry, error) {
	if window <= 0 {
		window = time.Second
	}

	now := time.Now()
	bucket := now.UnixMilli() / window.Milliseconds()
	reset := time.UnixMilli((bucket + 1) * window.Milliseconds())

	redisKey := s.keyPrefix + key + ":" + strconv.FormatInt(bucket, 10)

	// INCR and set expiry 2*window (safety)
	pipe := s.rdb.Pipeline()
	cnt := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return Entry{}, err
	}

	return Entry{Count: cnt.Val(), Reset: reset}, nil
}
