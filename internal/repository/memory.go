package repository

import (
	"context"
	"sync"
	"time"

	"shareit/internal/models"
)

type MemoryProjectionCache struct {
	projections sync.Map
	ttl         time.Duration
}

func NewMemoryProjectionCache(ttl time.Duration) *MemoryProjectionCache {
	return &MemoryProjectionCache{
		ttl: ttl,
	}
}

type projectionEntry struct {
	projection *models.ItemProjection
	expiresAt  time.Time
}

func (c *MemoryProjectionCache) GetProjection(ctx context.Context, itemID int64) (*models.ItemProjection, error) {
	val, ok := c.projections.Load(itemID)
	if !ok {
		return nil, nil
	}
	entry := val.(*projectionEntry)
	if time.Now().After(entry.expiresAt) {
		c.projections.Delete(itemID)
		return nil, nil
	}
	return entry.projection, nil
}

func (c *MemoryProjectionCache) SetProjection(ctx context.Context, projection *models.ItemProjection) error {
	c.projections.Store(projection.ItemID, &projectionEntry{
		projection: projection,
		expiresAt:  time.Now().Add(c.ttl),
	})
	return nil
}

func (c *MemoryProjectionCache) InvalidateProjection(ctx context.Context, itemID int64) error {
	c.projections.Delete(itemID)
	return nil
}
