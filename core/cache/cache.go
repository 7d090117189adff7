package cache

import (
	"context"
	"time"

	"schedshare/core/config"
	"schedshare/core/logger"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// AcquireLock takes a lease on key for ttl. Returns false when another
	// holder already owns it.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// ErrCacheMiss is returned by Get for absent keys.
var ErrCacheMiss = redis.Nil

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to redis", "error", err, "addr", cfg.Addr)
		return nil, err
	}

	logger.Info("Redis initialized successfully", "addr", cfg.Addr, "db", cfg.DB)
	return &redisCache{client: client}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *redisCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, "1", ttl).Result()
}

func (c *redisCache) ReleaseLock(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
