package campaign

import (
	"context"
	"strconv"
	"time"

	"sadaka/internal/domain"
	"sadaka/pkg/cache"
	"sadaka/pkg/errors"
	"sadaka/pkg/logger"
)

// Finder loads a campaign from storage.
type Finder interface {
	FindByID(ctx context.Context, id int64) (*domain.Campaign, error)
}

// CachedReader serves campaign reads from the cache and falls back to
// storage. Writers call Invalidate after any change.
type CachedReader struct {
	finder Finder
	cache  cache.Cache
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedReader(finder Finder, c cache.Cache, ttl time.Duration, log logger.Logger) *CachedReader {
	if c == nil {
		c = cache.Nop{}
	}
	return &CachedReader{finder: finder, cache: c, ttl: ttl, logger: log}
}

func cacheKey(id int64) string {
	return "campaign:" + strconv.FormatInt(id, 10)
}

func (r *CachedReader) Get(ctx context.Context, id int64) (*domain.Campaign, error) {
	key := cacheKey(id)

	var cached domain.Campaign
	err := r.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.logger.Warn("Campaign cache read failed", map[string]interface{}{
			"campaign_id": id,
			"error":       err.Error(),
		})
	}

	c, err := r.finder.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, c, r.ttl); err != nil {
		r.logger.Warn("Campaign cache write failed", map[string]interface{}{
			"campaign_id": id,
			"error":       err.Error(),
		})
	}
	return c, nil
}

func (r *CachedReader) Invalidate(ctx context.Context, id int64) error {
	return r.cache.Delete(ctx, cacheKey(id))
}
