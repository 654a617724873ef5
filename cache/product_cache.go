package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/models"
)

var ErrCacheMiss = errors.New("cache miss")

const pageKeyPattern = "products:page:*"

// ProductCache stores catalog reads in Redis as JSON.
type ProductCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProductCache{client: client, baseTTL: ttl}
}

func (c *ProductCache) GetPage(ctx context.Context, page, limit int) (*models.ProductPage, error) {
	var p models.ProductPage
	if err := c.get(ctx, pageKey(page, limit), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *ProductCache) SetPage(ctx context.Context, page, limit int, p *models.ProductPage) error {
	return c.set(ctx, pageKey(page, limit), p)
}

func (c *ProductCache) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := c.get(ctx, productKey(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *ProductCache) SetProduct(ctx context.Context, p *models.Product) error {
	return c.set(ctx, productKey(p.ID), p)
}

// InvalidateProducts drops the given products and every cached page, since
// any page may list them.
func (c *ProductCache) InvalidateProducts(ctx context.Context, ids ...int64) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}

	iter := c.client.Scan(ctx, 0, pageKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *ProductCache) get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *ProductCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Int63n(int64(c.baseTTL/5) + 1))
	if err := c.client.Set(ctx, key, data, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func pageKey(page, limit int) string {
	return fmt.Sprintf("products:page:%d:%d", page, limit)
}

func productKey(id int64) string {
	return fmt.Sprintf("products:item:%d", id)
}
