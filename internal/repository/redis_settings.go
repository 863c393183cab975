package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const defaultSettingsPrefix = "bulkmail:settings"

// RedisSettingsRepository stores each setting as a plain string key.
type RedisSettingsRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSettingsRepository uses prefix for every key, or a default when empty.
func NewRedisSettingsRepository(client redis.UniversalClient, prefix string) *RedisSettingsRepository {
	if prefix == "" {
		prefix = defaultSettingsPrefix
	}
	return &RedisSettingsRepository{client: client, prefix: prefix}
}

func (r *RedisSettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisSettingsRepository) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisSettingsRepository) key(k string) string {
	return r.prefix + ":" + k
}
