package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// redisKeyPrefix namespaces storefront keys inside a shared Redis database.
const redisKeyPrefix = "eventhub:client:"

// RedisTokenRepository stores the token as a plain Redis string without TTL;
// expiry is the backend's decision, not the store's.
type RedisTokenRepository struct {
	client *redis.Client
	key    string
}

// NewRedisTokenRepository stores the token under key (DefaultKey when empty).
func NewRedisTokenRepository(client *redis.Client, key string) *RedisTokenRepository {
	if key == "" {
		key = DefaultKey
	}
	return &RedisTokenRepository{client: client, key: redisKeyPrefix + key}
}

func (r *RedisTokenRepository) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get token: %w", err)
	}
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

func (r *RedisTokenRepository) Save(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("save token: empty token")
	}
	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

func (r *RedisTokenRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
