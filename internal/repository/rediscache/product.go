// Package rediscache provides a Redis read-through cache in front of the
// product repository. Product detail pages are read far more often than the
// catalog changes; a short TTL keeps stock figures honest enough for the
// availability checks, which always re-read the source of truth before a
// cart mutation commits.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/internal/repository"
)

const detailKeyPrefix = "product:detail:"

// DefaultDetailTTL bounds how stale a cached product detail may be.
const DefaultDetailTTL = 30 * time.Second

// ProductCache wraps a ProductRepository with a Redis cache for GetDetail.
// All other reads pass through. Cache failures are logged and degrade to the
// underlying repository; a broken cache must never break the storefront.
type ProductCache struct {
	inner  repository.ProductRepository
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewProductCache creates a read-through product cache. A non-positive TTL
// falls back to DefaultDetailTTL.
func NewProductCache(inner repository.ProductRepository, client *redis.Client, logger *slog.Logger, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = DefaultDetailTTL
	}
	return &ProductCache{
		inner:  inner,
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// GetByID passes through to the underlying repository.
func (c *ProductCache) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return c.inner.GetByID(ctx, id)
}

// GetDetail returns the cached detail when present, otherwise reads through
// and populates the cache.
func (c *ProductCache) GetDetail(ctx context.Context, id string) (*domain.ProductDetail, error) {
	key := detailKeyPrefix + id

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var detail domain.ProductDetail
		if err := json.Unmarshal(data, &detail); err == nil {
			return &detail, nil
		}
		// Corrupt entry: drop it and fall through to the source.
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "product cache read failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	detail, err := c.inner.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshal product detail: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "product cache write failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	return detail, nil
}

// List passes through to the underlying repository.
func (c *ProductCache) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	return c.inner.List(ctx, filter)
}

// ListVariants passes through to the underlying repository. Variant stock
// backs the add-to-cart ceiling, so it is never served from cache.
func (c *ProductCache) ListVariants(ctx context.Context, productID string) ([]domain.ProductVariant, error) {
	return c.inner.ListVariants(ctx, productID)
}

// Invalidate drops the cached detail for a product.
func (c *ProductCache) Invalidate(ctx context.Context, productID string) {
	if err := c.client.Del(ctx, detailKeyPrefix+productID).Err(); err != nil {
		c.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}
