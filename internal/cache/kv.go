package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by KV.Get when the key is absent. A miss is an expected
// outcome, not a failure.
var ErrMiss = errors.New("cache miss")

// KV is the minimal command surface the service needs from the cache store.
// Keeping it narrow lets tests substitute an in-memory implementation.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
