package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matheuslopes/garimpei-backend/pkg/redis"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

// Redis adapts the shared redis client to the Cache interface. Entries are
// scoped under a generation token; InvalidateAll rotates the generation so
// stale keys simply expire instead of being enumerated.
type Redis struct {
	store redisStore
	scope string
}

// NewRedis builds a redis-backed cache under the given scope.
func NewRedis(store redisStore, scope string) (*Redis, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store is required")
	}
	if scope == "" {
		return nil, fmt.Errorf("scope is required")
	}
	return &Redis{store: store, scope: scope}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	fullKey, err := r.buildKey(ctx, key)
	if err != nil {
		return "", false, err
	}
	value, err := r.store.Get(ctx, fullKey)
	if err != nil {
		if redis.IsNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *Redis) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	fullKey, err := r.buildKey(ctx, key)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, fullKey, value, ttl)
}

func (r *Redis) InvalidateAll(ctx context.Context) error {
	return r.store.Set(ctx, r.generationKey(), uuid.NewString(), 0)
}

func (r *Redis) buildKey(ctx context.Context, key string) (string, error) {
	generation, err := r.store.Get(ctx, r.generationKey())
	if err != nil {
		if !redis.IsNil(err) {
			return "", err
		}
		generation = "0"
	}
	return r.store.CacheKey(r.scope, generation+":"+key), nil
}

func (r *Redis) generationKey() string {
	return r.store.CacheKey(r.scope, "generation")
}
