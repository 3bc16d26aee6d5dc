package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"royalchoice/internal/models"

	"github.com/redis/go-redis/v9"
)

const featuredKey = "products:featured"

// RedisProductCache keeps the featured feed in Redis as JSON.
type RedisProductCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisProductCache(client *redis.Client, ttl time.Duration) *RedisProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisProductCache{
		client:  client,
		baseTTL: ttl,
	}
}

func (r *RedisProductCache) GetFeatured(ctx context.Context) ([]models.Product, error) {
	data, err := r.client.Get(ctx, featuredKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("unmarshal featured products failed: %w", err)
	}
	return products, nil
}

func (r *RedisProductCache) SetFeatured(ctx context.Context, products []models.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal featured products failed: %w", err)
	}

	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/5) + 1))
	if err := r.client.Set(ctx, featuredKey, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisProductCache) InvalidateFeatured(ctx context.Context) error {
	if err := r.client.Del(ctx, featuredKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
