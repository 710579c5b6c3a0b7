/*
cache.go - Per-run memoization of candidates

PURPOSE:
  An export has thousands of sales but only a handful of distinct amounts.
  The Cache computes the candidate of each amount once and hands the same
  value back afterwards. It lives for one ingestion run and never evicts;
  the key space is bounded by the amounts observed in that run.

CONCURRENCY:
  Get is safe for concurrent callers. Concurrent misses on the same price
  share a single enumeration (singleflight). Warm precomputes many prices
  with a bounded worker group.

USAGE:
  cache := pricing.NewCache(catalog, promoLimit)
  _ = cache.Warm(ctx, prices, 4)
  cand := cache.Get(12000)

SEE ALSO:
  - enumerate.go: What a miss computes
  - sale/ledger.go: The ingestion that owns a Cache
*/
package pricing

import (
	"context"
	"strconv"
	"sync"

	"github.com/warp/ticket-recon/ticket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes Enumerate + NewCandidate keyed by exact price.
type Cache struct {
	catalog    ticket.Catalog
	promoLimit int

	mu      sync.Mutex
	entries map[int64]Candidate
	hits    int
	misses  int

	group singleflight.Group
}

// CacheStats counts lookups since the cache was created.
type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

func NewCache(catalog ticket.Catalog, promoLimit int) *Cache {
	return &Cache{
		catalog:    catalog,
		promoLimit: promoLimit,
		entries:    make(map[int64]Candidate),
	}
}

// Get returns the candidate for price, computing it on first access.
func (c *Cache) Get(price int64) Candidate {
	c.mu.Lock()
	if cand, ok := c.entries[price]; ok {
		c.hits++
		c.mu.Unlock()
		return cand
	}
	c.misses++
	c.mu.Unlock()

	v, _, _ := c.group.Do(strconv.FormatInt(price, 10), func() (any, error) {
		c.mu.Lock()
		cand, ok := c.entries[price]
		c.mu.Unlock()
		if ok {
			return cand, nil
		}

		cand = NewCandidate(Enumerate(price, c.catalog, c.promoLimit))

		c.mu.Lock()
		c.entries[price] = cand
		c.mu.Unlock()
		return cand, nil
	})
	return v.(Candidate)
}

// Warm computes the candidates of prices concurrently, at most workers at a
// time (workers <= 0 means one per price). It stops early when ctx is done.
func (c *Cache) Warm(ctx context.Context, prices []int64, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	seen := make(map[int64]bool, len(prices))
	for _, p := range prices {
		if seen[p] {
			continue
		}
		seen[p] = true

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.Get(p)
			return nil
		})
	}
	return g.Wait()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
