package repository

import (
	"context"
	"sync/atomic"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// recoveryProbeInterval bounds how often a downed primary is re-tried.
const recoveryProbeInterval = time.Minute

// FailoverProjectionCache serves from the primary cache until it errors,
// then falls back to the secondary and probes the primary once a minute.
type FailoverProjectionCache struct {
	primary  domain.ProjectionCache
	fallback domain.ProjectionCache
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// lastCheck holds the UnixNano of the most recent primary failure or
	// probe; concurrent requests race to it, so it must stay atomic.
	lastCheck atomic.Int64
}

func NewFailoverProjectionCache(primary, fallback domain.ProjectionCache, logger *zerolog.Logger) *FailoverProjectionCache {
	return &FailoverProjectionCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverProjectionCache) markDown(err error) {
	c.logger.Error().Err(err).Msg("Primary projection cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().UnixNano())
}

func (c *FailoverProjectionCache) shouldProbe() bool {
	return time.Since(time.Unix(0, c.lastCheck.Load())) > recoveryProbeInterval
}

func (c *FailoverProjectionCache) GetProjection(ctx context.Context, itemID int64) (*models.ItemProjection, error) {
	if !c.isDown.Load() {
		proj, err := c.primary.GetProjection(ctx, itemID)
		if err == nil {
			return proj, nil
		}
		c.markDown(err)
	}

	if c.isDown.Load() && c.shouldProbe() {
		proj, err := c.primary.GetProjection(ctx, itemID)
		if err == nil {
			c.isDown.Store(false)
			return proj, nil
		}
		c.lastCheck.Store(time.Now().UnixNano())
	}

	return c.fallback.GetProjection(ctx, itemID)
}

func (c *FailoverProjectionCache) SetProjection(ctx context.Context, projection *models.ItemProjection) error {
	if !c.isDown.Load() {
		err := c.primary.SetProjection(ctx, projection)
		if err == nil {
			return nil
		}
		c.markDown(err)
	}

	return c.fallback.SetProjection(ctx, projection)
}

func (c *FailoverProjectionCache) InvalidateProjection(ctx context.Context, itemID int64) error {
	// Invalidation goes to both sides so a stale snapshot cannot survive
	// a failover transition.
	if !c.isDown.Load() {
		if err := c.primary.InvalidateProjection(ctx, itemID); err != nil {
			c.markDown(err)
		}
	}

	return c.fallback.InvalidateProjection(ctx, itemID)
}
