package warehouse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mchmarny/riskview/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const loadTimeoutSeconds = 300

// Cache memoizes loaded tables for the process lifetime, keyed by table name.
// Concurrent first loads of one table share a single query; failed loads are
// not cached. The shared query outlives any single caller's context, so a
// cancelled caller only abandons its own wait.
type Cache struct {
	mu     sync.RWMutex
	tables map[string]*Table
	group  singleflight.Group
}

func NewCache() *Cache {
	return &Cache{tables: make(map[string]*Table)}
}

// Table returns the named table, loading it on first use.
func (c *Cache) Table(ctx context.Context, s *Session, name string) (*Table, error) {
	c.mu.RLock()
	t, ok := c.tables[name]
	c.mu.RUnlock()
	if ok {
		metrics.TableCacheHits.WithLabelValues(name).Inc()
		return t, nil
	}

	ch := c.group.DoChan(name, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeoutSeconds*time.Second)
		defer cancel()

		t, err := LoadTable(lctx, s, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[name] = t
		c.mu.Unlock()
		slog.Debug("table cached", "table", name, "rows", t.Len())
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Table), nil
	}
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
