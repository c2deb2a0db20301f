package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"marginalia/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Store is the cache surface services depend on. Implementations report
// a plain miss as (false, nil); Get only errors when the backend itself
// failed.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string)
}

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a Store backed by the given Redis client.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	prefix := keyPrefix(key)

	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		observability.CacheRequests.WithLabelValues(prefix, "miss").Inc()
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// Corrupt entry, drop it and report a miss.
		s.rdb.Del(ctx, key)
		observability.CacheRequests.WithLabelValues(prefix, "miss").Inc()
		return false, nil
	}
	observability.CacheRequests.WithLabelValues(prefix, "hit").Inc()
	return true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}

func (s *redisStore) Invalidate(ctx context.Context, key string) {
	s.rdb.Del(ctx, key)
}

type noopStore struct{}

// Noop returns a Store that holds nothing. Used when Redis is absent and
// in tests that want reads to always reach the repository.
func Noop() Store {
	return noopStore{}
}

func (noopStore) Get(ctx context.Context, key string, _ interface{}) (bool, error) {
	observability.CacheRequests.WithLabelValues(keyPrefix(key), "bypass").Inc()
	return false, nil
}

func (noopStore) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func (noopStore) Invalidate(context.Context, string) {}
