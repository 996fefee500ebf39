package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ensembled:feedback:"

// RedisStore shares feedback weights across daemon replicas. Increments use
// INCRBY, so concurrent submissions never lose updates.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis creates a Redis client with sane timeouts and verifies the
// connection with a ping.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Record(ctx context.Context, modelID string, rating int) (int, error) {
	key := keyPrefix + modelID
	// Unseen models start at weight 1; SETNX is a no-op once the key exists.
	if err := s.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
		return 0, fmt.Errorf("init feedback weight: %w", err)
	}
	n, err := s.client.IncrBy(ctx, key, int64(rating)).Result()
	if err != nil {
		return 0, fmt.Errorf("apply feedback rating: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Weight(ctx context.Context, modelID string) (int, error) {
	w, err := s.client.Get(ctx, keyPrefix+modelID).Int()
	if err == redis.Nil {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read feedback weight: %w", err)
	}
	return w, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
