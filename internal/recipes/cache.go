package recipes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoaderFunc fetches the full recipe list from the backing store.
type LoaderFunc func(ctx context.Context) ([]Recipe, error)

// loadTimeout bounds a shared reload.
const loadTimeout = 30 * time.Second

// CacheObserver receives cache events. A nil observer is allowed.
type CacheObserver interface {
	CatalogCacheHit()
	CatalogCacheMiss()
	CatalogLoaded(size int)
}

// CachedCatalog serves catalog snapshots, reloading from the store after
// ttl. Concurrent reloads are collapsed into one store read.
type CachedCatalog struct {
	load     LoaderFunc
	ttl      time.Duration
	observer CacheObserver
	now      func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	current  *Catalog
	loadedAt time.Time
}

// NewCachedCatalog creates a cache around load. A ttl <= 0 keeps the first
// snapshot until Invalidate is called.
func NewCachedCatalog(load LoaderFunc, ttl time.Duration, observer CacheObserver) *CachedCatalog {
	return &CachedCatalog{
		load:     load,
		ttl:      ttl,
		observer: observer,
		now:      time.Now,
	}
}

// Get returns the current snapshot, loading it if missing or stale.
func (c *CachedCatalog) Get(ctx context.Context) (*Catalog, error) {
	c.mu.RLock()
	cat, loadedAt := c.current, c.loadedAt
	c.mu.RUnlock()

	if cat != nil && (c.ttl <= 0 || c.now().Sub(loadedAt) < c.ttl) {
		if c.observer != nil {
			c.observer.CatalogCacheHit()
		}
		return cat, nil
	}

	if c.observer != nil {
		c.observer.CatalogCacheMiss()
	}

	// The reload is shared, so one caller's cancellation must not fail the others.
	ch := c.group.DoChan("catalog", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		list, err := c.load(loadCtx)
		if err != nil {
			return nil, fmt.Errorf("load recipes: %w", err)
		}
		fresh, err := NewCatalog(list)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.current = fresh
		c.loadedAt = c.now()
		c.mu.Unlock()

		if c.observer != nil {
			c.observer.CatalogLoaded(fresh.Len())
		}
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		if cat != nil {
			return cat, nil
		}
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			// A stale snapshot is still a valid read-only view.
			if cat != nil {
				return cat, nil
			}
			return nil, res.Err
		}
		return res.Val.(*Catalog), nil
	}
}

// Invalidate drops the cached snapshot so the next Get reloads.
func (c *CachedCatalog) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
