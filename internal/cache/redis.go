package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisKV adapts a go-redis client to the KV interface. The connection handle
// is owned by the caller and released with Close on shutdown.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(logger *logrus.Logger, cfg RedisConfig) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	log := logger.WithFields(logrus.Fields{
		"component": "cache",
		"addr":      cfg.Addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Error("Redis connection failed")
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info("Redis connection established")
	return &RedisKV{client: client}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrMiss
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisKV) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *RedisKV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
