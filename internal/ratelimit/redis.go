package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps each window in a sorted set scored by hit time in
// milliseconds, so limits hold across instances.
type RedisStore struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a RedisStore whose keys start with prefix.
func NewRedisStore(client *goredis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Hit implements Store. Trimming, recording and counting run in one
// MULTI/EXEC block.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int, string, error) {
	now := s.now()
	id := uuid.NewString()
	k := s.key(key)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(now.Add(-window).UnixMilli(), 10))
	pipe.ZAdd(ctx, k, goredis.Z{Score: float64(now.UnixMilli()), Member: id})
	card := pipe.ZCard(ctx, k)
	pipe.PExpire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, "", fmt.Errorf("rate limit hit: %w", err)
	}
	return int(card.Val()), id, nil
}

// Undo implements Store.
func (s *RedisStore) Undo(ctx context.Context, key, id string) error {
	if err := s.client.ZRem(ctx, s.key(key), id).Err(); err != nil {
		return fmt.Errorf("rate limit undo: %w", err)
	}
	return nil
}
