package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront/logging"
)

const (
	// staleReadWindow is how long after a committed write the touched
	// products are invalidated a second time. A catalog read that loaded rows
	// before the commit may refill the cache after the first pass.
	staleReadWindow = 2 * time.Second

	cacheCallTimeout = 5 * time.Second
)

// invalidateProducts drops ids from c now and, when window is positive, once
// more after window. The delayed pass does not depend on ctx staying alive.
func invalidateProducts(ctx context.Context, c ProductCacheInvalidator, window time.Duration, ids ...int64) {
	if c == nil || len(ids) == 0 {
		return
	}
	logger := logging.FromContext(ctx)
	if err := c.InvalidateProducts(ctx, ids...); err != nil {
		logger.Warn("product cache invalidation failed", zap.Int64s("product_ids", ids), zap.Error(err))
	}
	if window <= 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	time.AfterFunc(window, func() {
		ctx, cancel := context.WithTimeout(detached, cacheCallTimeout)
		defer cancel()
		if err := c.InvalidateProducts(ctx, ids...); err != nil {
			logger.Warn("delayed product cache invalidation failed", zap.Int64s("product_ids", ids), zap.Error(err))
		}
	})
}
