package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"novapos/internal/domain"
)

type RedisAdviceCache struct {
	client *redis.Client
}

func NewRedisAdviceCache(client *redis.Client) *RedisAdviceCache {
	return &RedisAdviceCache{client: client}
}

func (c *RedisAdviceCache) Get(ctx context.Context, key string) (*domain.Advice, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var advice domain.Advice
	if err := json.Unmarshal(val, &advice); err != nil {
		return nil, false, err
	}
	return &advice, true, nil
}

func (c *RedisAdviceCache) Set(ctx context.Context, key string, value *domain.Advice, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
