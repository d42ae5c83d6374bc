package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PageCache stores raw page bodies keyed by URL.
type PageCache interface {
	GetCachedPage(ctx context.Context, url string) ([]byte, error)
	SetCachedPage(ctx context.Context, url string, body []byte, ttl time.Duration) error
}

// CachedFetcher serves pages from a PageCache and falls through to the
// wrapped fetcher on a miss. Cache failures are logged, never returned.
type CachedFetcher struct {
	next  PageFetcher
	cache PageCache
	ttl   time.Duration
}

// NewCachedFetcher wraps next with cache. A non-positive ttl disables caching
// and returns next unchanged.
func NewCachedFetcher(next PageFetcher, cache PageCache, ttl time.Duration) PageFetcher {
	if cache == nil || ttl <= 0 {
		return next
	}
	return &CachedFetcher{next: next, cache: cache, ttl: ttl}
}

// Fetch implements PageFetcher.
func (c *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := c.cache.GetCachedPage(ctx, url)
	if err != nil {
		zap.L().Warn("page cache read failed", zap.String("url", url), zap.Error(err))
	}
	if body != nil {
		zap.L().Debug("page cache hit", zap.String("url", url))
		return body, nil
	}

	body, err = c.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetCachedPage(ctx, url, body, c.ttl); err != nil {
		zap.L().Warn("page cache write failed", zap.String("url", url), zap.Error(err))
	}
	return body, nil
}
