package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a Redis hash store.
type RedisOptions struct {
	URL         string
	MaxRetries  int
	PoolSize    int
	PoolTimeout time.Duration
}

// RedisStore implements HashStore with native Redis hash commands.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses opts.URL, applies pool defaults and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.URL == "" {
		return nil, errors.New("APP_REDIS_URL is required for the redis store")
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 10
	}
	if opts.PoolTimeout == 0 {
		opts.PoolTimeout = 30 * time.Second
	}

	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	opt.MaxRetries = opts.MaxRetries
	opt.PoolSize = opts.PoolSize
	opt.PoolTimeout = opts.PoolTimeout
	opt.ReadTimeout = 5 * time.Second
	opt.WriteTimeout = 5 * time.Second

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opt.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

func (rs *RedisStore) HSet(ctx context.Context, namespace, field, value string) (bool, error) {
	if namespace == "" {
		return false, errEmptyNamespace
	}
	n, err := rs.client.HSet(ctx, namespace, field, value).Result()
	if err != nil {
		return false, fmt.Errorf("redis hset error: %w", err)
	}
	return n == 1, nil
}

func (rs *RedisStore) HGet(ctx context.Context, namespace, field string) (string, bool, error) {
	val, err := rs.client.HGet(ctx, namespace, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget error: %w", err)
	}
	return val, true, nil
}

func (rs *RedisStore) HGetAll(ctx context.Context, namespace string) (map[string]string, error) {
	all, err := rs.client.HGetAll(ctx, namespace).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall error: %w", err)
	}
	return all, nil
}

func (rs *RedisStore) HDel(ctx context.Context, namespace, field string) (bool, error) {
	n, err := rs.client.HDel(ctx, namespace, field).Result()
	if err != nil {
		return false, fmt.Errorf("redis hdel error: %w", err)
	}
	return n == 1, nil
}

func (rs *RedisStore) HExists(ctx context.Context, namespace, field string) (bool, error) {
	ok, err := rs.client.HExists(ctx, namespace, field).Result()
	if err != nil {
		return false, fmt.Errorf("redis hexists error: %w", err)
	}
	return ok, nil
}

func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// Close closes the Redis connection pool.
func (rs *RedisStore) Close() error {
	if rs.client != nil {
		return rs.client.Close()
	}
	return nil
}
