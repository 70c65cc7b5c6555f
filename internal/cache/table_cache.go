package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/epeers/metalprices/internal/analytics"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a loaded table is served before it is reloaded
const DefaultTTL = time.Hour

// Loader loads the joined price table for a currency. An empty currency means all currencies.
type Loader func(ctx context.Context, currency string) (analytics.Table, error)

// TableCache provides an in-memory cache of loaded price tables, keyed by currency.
// Invalidate and Clear bump a generation so a load already in flight cannot
// store the table it read before the refresh.
type TableCache struct {
	load    Loader
	ttl     time.Duration
	entries map[string]tableEntry
	gens    map[string]uint64
	epoch   uint64
	mu      sync.RWMutex
	group   singleflight.Group
	now     func() time.Time
}

// generation identifies one invalidation era of a currency
type generation struct {
	epoch uint64
	gen   uint64
}

type tableEntry struct {
	table    analytics.Table
	loadedAt time.Time
}

// NewTableCache creates a new table cache. A non-positive ttl uses DefaultTTL.
func NewTableCache(load Loader, ttl time.Duration) *TableCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TableCache{
		load:    load,
		ttl:     ttl,
		entries: make(map[string]tableEntry),
		gens:    make(map[string]uint64),
		now:     time.Now,
	}
}

// Get returns the cached table for currency, loading it when absent or stale.
// Concurrent misses for the same currency share one load, which runs detached
// from any single caller's cancellation. A caller whose ctx ends stops waiting
// without failing the others.
func (c *TableCache) Get(ctx context.Context, currency string) (analytics.Table, error) {
	if t, ok := c.lookup(currency); ok {
		return t, nil
	}

	g := c.generation(currency)
	key := fmt.Sprintf("%s#%d.%d", currency, g.epoch, g.gen)
	loadCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		if t, ok := c.lookup(currency); ok {
			return t, nil
		}
		t, err := c.load(loadCtx, currency)
		if err != nil {
			return nil, err
		}
		c.store(currency, g, t)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return analytics.Table{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return analytics.Table{}, res.Err
		}
		return res.Val.(analytics.Table), nil
	}
}

func (c *TableCache) generation(currency string) generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return generation{epoch: c.epoch, gen: c.gens[currency]}
}

// store keeps t only if currency was not invalidated since g was taken
func (c *TableCache) store(currency string, g generation, t analytics.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != g.epoch || c.gens[currency] != g.gen {
		return
	}
	c.entries[currency] = tableEntry{table: t, loadedAt: c.now()}
}

func (c *TableCache) lookup(currency string) (analytics.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[currency]
	if !exists {
		return analytics.Table{}, false
	}
	if c.now().Sub(entry.loadedAt) > c.ttl {
		return analytics.Table{}, false
	}
	return entry.table, true
}

// Invalidate removes the table for currency from the cache
func (c *TableCache) Invalidate(currency string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, currency)
	c.gens[currency]++
}

// Clear removes all cached tables
func (c *TableCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]tableEntry)
	c.epoch++
}
