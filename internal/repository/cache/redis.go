package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces the digest keys.
const KeyPrefix = "update-casks:digest:"

// RedisRepository stores digests as plain Redis strings without expiry.
type RedisRepository struct {
	cl *redis.Client
}

// NewRedisRepository wraps an existing client.
func NewRedisRepository(cl *redis.Client) *RedisRepository {
	return &RedisRepository{cl: cl}
}

// DialRedis parses url, connects and pings the server.
func DialRedis(ctx context.Context, url string) (*RedisRepository, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	cl := redis.NewClient(opt)
	if _, err = cl.Ping(ctx).Result(); err != nil {
		_ = cl.Close()

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisRepository(cl), nil
}

// Get returns the cached digest for url.
func (r *RedisRepository) Get(ctx context.Context, url string) (string, error) {
	digest, err := r.cl.Get(ctx, KeyPrefix+url).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("get cached digest: %w", err)
	}

	return digest, nil
}

// Put stores digest for url.
func (r *RedisRepository) Put(ctx context.Context, url, digest string) error {
	if err := r.cl.Set(ctx, KeyPrefix+url, digest, 0).Err(); err != nil {
		return fmt.Errorf("set cached digest: %w", err)
	}

	return nil
}

// Close releases the client.
func (r *RedisRepository) Close() error {
	return r.cl.Close()
}
