package service

import (
	"context"
	"fmt"

	"order-inventory-service/internal/util"

	"go.uber.org/zap"
)

// Cache is a read-through cache port. Get reports whether key was present.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

// AllProductsKey caches the full product list
const AllProductsKey = "products:all"

// ProductKey caches a single product
func ProductKey(id int64) string { return fmt.Sprintf("product:%d", id) }

// OrderKey caches a single order
func OrderKey(id int64) string { return fmt.Sprintf("order:%d", id) }

// cacheGet is a best-effort lookup; errors count as misses.
func cacheGet(ctx context.Context, c Cache, logger *zap.Logger, key string, dest interface{}) bool {
	hit, err := c.Get(ctx, key, dest)
	if err != nil {
		util.CacheOperationsFailed.WithLabelValues("get").Inc()
		logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func cacheSet(ctx context.Context, c Cache, logger *zap.Logger, key string, value interface{}) {
	if err := c.Set(ctx, key, value); err != nil {
		util.CacheOperationsFailed.WithLabelValues("set").Inc()
		logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// CacheService exposes maintenance operations on the cache
type CacheService struct {
	cache  Cache
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(cache Cache) *CacheService {
	return &CacheService{cache: cache, logger: util.GetLogger()}
}

// Clear drops every cached entry
func (s *CacheService) Clear(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		util.CacheOperationsFailed.WithLabelValues("clear").Inc()
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	s.logger.Info("Cache cleared")
	return nil
}
