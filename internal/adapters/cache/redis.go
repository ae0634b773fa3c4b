package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

const defaultNamespace = "doclife"

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithNamespace sets the key prefix.
func WithNamespace(ns string) RedisOption {
	return func(r *Redis) {
		if ns != "" {
			r.namespace = ns
		}
	}
}

// Redis is a cache shared by every engine instance pointing at the same server.
type Redis struct {
	client    redis.Cmdable
	namespace string
	ttl       time.Duration
}

var _ secondary.Cache = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client redis.Cmdable, ttl time.Duration, opts ...RedisOption) *Redis {
	r := &Redis{client: client, namespace: defaultNamespace, ttl: ttl}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DialRedis parses redisURL (e.g. "redis://localhost:6379/0"), connects and
// verifies connectivity.
func DialRedis(ctx context.Context, redisURL string, ttl time.Duration, opts ...RedisOption) (*Redis, *redis.Client, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedis(client, ttl, opts...), client, nil
}

func (r *Redis) key(k string) string {
	return r.namespace + ":cache:" + k
}

// Get returns the cached value and whether it was present.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes keys.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = r.key(k)
	}
	if err := r.client.Del(ctx, namespaced...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}
