package venue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss means the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the cache the suggester writes through; Redis in production.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKVStore is a KVStore backed by go-redis.
type RedisKVStore struct {
	client *redis.Client
}

// NewRedisKVStore connects lazily; call Ping to check the server.
func NewRedisKVStore(addr, password string, db int) *RedisKVStore {
	return &RedisKVStore{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Ping checks the connection.
func (r *RedisKVStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisKVStore) Close() error {
	return r.client.Close()
}
