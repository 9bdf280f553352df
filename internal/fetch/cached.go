package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/fit-agent/internal/breaker"
	"github.com/jonathan/fit-agent/internal/cache"
)

// DefaultCacheTTL is how long a fetched page is served from cache
const DefaultCacheTTL = 7 * 24 * time.Hour

// CachedFetcher serves fresh pages from a cache.Store and stores new ones.
// When the fetch breaker is open it falls back to a stale copy if one exists.
type CachedFetcher struct {
	store  cache.Store
	next   Fetcher
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewCachedFetcher wraps next with store. ttl <= 0 uses DefaultCacheTTL.
func NewCachedFetcher(store cache.Store, next Fetcher, ttl time.Duration, logger *zap.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFetcher{store: store, next: next, ttl: ttl, logger: logger, now: time.Now}
}

// Fetch implements Fetcher
func (f *CachedFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	cached := f.lookup(ctx, url)
	if cached != nil && f.now().Sub(cached.FetchedAt) < f.ttl {
		cached.FromCache = true
		return cached, nil
	}

	page, err := f.next.Fetch(ctx, url)
	if err != nil {
		var fe *Error
		switch {
		case cached != nil && errors.Is(err, breaker.ErrOpen):
			f.logger.Debug("serving stale page", zap.String("url", url))
			cached.FromCache = true
			cached.Stale = true
			return cached, nil
		case cached != nil && errors.As(err, &fe) && fe.PageFault():
			// the page is gone, so its old copy must not be served later
			if derr := f.Invalidate(ctx, url); derr != nil {
				f.logger.Warn("cache delete failed", zap.String("url", url), zap.Error(derr))
			}
		}
		return nil, err
	}

	if data, merr := json.Marshal(page); merr == nil {
		if perr := f.store.Put(ctx, url, data); perr != nil {
			f.logger.Warn("cache write failed", zap.String("url", url), zap.Error(perr))
		}
	}
	return page, nil
}

// Invalidate drops url from the cache
func (f *CachedFetcher) Invalidate(ctx context.Context, url string) error {
	return f.store.Delete(ctx, url)
}

func (f *CachedFetcher) lookup(ctx context.Context, url string) *Page {
	entry, err := f.store.Get(ctx, url)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			f.logger.Warn("cache read failed", zap.String("url", url), zap.Error(err))
		}
		return nil
	}

	var page Page
	if err := json.Unmarshal(entry.Value, &page); err != nil {
		_ = f.Invalidate(ctx, url)
		return nil
	}
	if page.FetchedAt.IsZero() {
		page.FetchedAt = entry.StoredAt
	}
	return &page
}
