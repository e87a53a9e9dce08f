package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"safespace/internal/models"
	"safespace/internal/repository"
	"safespace/internal/telemetry"
)

const (
	keyPrefix  = "safespace:resources:"
	allKey     = keyPrefix + "all"
	DefaultTTL = 5 * time.Minute
)

// ResourceCache wraps a ResourceRepository with a Redis read-through cache.
// Cache failures are logged and fall back to the wrapped repository.
type ResourceCache struct {
	next    repository.ResourceRepository
	client  *redis.Client
	ttl     time.Duration
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

var _ repository.ResourceRepository = (*ResourceCache)(nil)

// NewResourceCache creates a cache in front of next. A non-positive ttl uses DefaultTTL.
func NewResourceCache(next repository.ResourceRepository, client *redis.Client, ttl time.Duration, metrics *telemetry.Metrics, logger *zap.Logger) *ResourceCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResourceCache{
		next:    next,
		client:  client,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *ResourceCache) ListAll(ctx context.Context) ([]*models.Resource, error) {
	return c.readThrough(ctx, allKey, func() ([]*models.Resource, error) {
		return c.next.ListAll(ctx)
	})
}

func (c *ResourceCache) ListByCategory(ctx context.Context, category string) ([]*models.Resource, error) {
	return c.readThrough(ctx, categoryKey(category), func() ([]*models.Resource, error) {
		return c.next.ListByCategory(ctx, category)
	})
}

func (c *ResourceCache) Create(ctx context.Context, input *models.CreateResourceInput) (*models.Resource, error) {
	resource, err := c.next.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := c.client.Del(ctx, allKey, categoryKey(resource.Category)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate resource cache", zap.Error(err))
	}
	return resource, nil
}

func (c *ResourceCache) Count(ctx context.Context) (int, error) {
	return c.next.Count(ctx)
}

func (c *ResourceCache) readThrough(ctx context.Context, key string, load func() ([]*models.Resource, error)) ([]*models.Resource, error) {
	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var resources []*models.Resource
		if jsonErr := json.Unmarshal(cached, &resources); jsonErr == nil {
			c.metrics.RecordCacheLookup(true)
			return resources, nil
		}
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Resource cache read failed", zap.String("key", key), zap.Error(err))
	}
	c.metrics.RecordCacheLookup(false)

	resources, err := load()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(resources)
	if err != nil {
		return resources, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Resource cache write failed", zap.String("key", key), zap.Error(err))
	}
	return resources, nil
}

func categoryKey(category string) string {
	return keyPrefix + "category:" + category
}
