package oddsfeed

import (
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/boatrace-edge/internal/models"
)

// OddsCache holds the latest odds snapshot per race
type OddsCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	mu        sync.Mutex
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewOddsCache creates a cache whose entries expire after ttl
func NewOddsCache(ttl time.Duration) *OddsCache {
	return &OddsCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get returns the cached snapshot for raceID
func (c *OddsCache) Get(raceID string) (*models.MarketOdds, bool) {
	if v, found := c.cache.Get(raceID); found {
		if odds, ok := v.(*models.MarketOdds); ok {
			c.hitCount.Add(1)
			return odds, true
		}
	}
	c.missCount.Add(1)
	return nil, false
}

// Set stores a snapshot unless a newer one is already cached
func (c *OddsCache) Set(odds *models.MarketOdds) {
	if odds == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, found := c.cache.Get(odds.RaceID); found {
		if cur, ok := v.(*models.MarketOdds); ok && cur.FetchedAt.After(odds.FetchedAt) {
			return
		}
	}
	c.cache.Set(odds.RaceID, odds, c.ttl)
}

// Invalidate removes the snapshot for raceID
func (c *OddsCache) Invalidate(raceID string) {
	c.cache.Delete(raceID)
}

// Stats returns hit and miss counts and the current item count
func (c *OddsCache) Stats() (hits, misses uint64, items int) {
	return c.hitCount.Load(), c.missCount.Load(), c.cache.ItemCount()
}

// HitRate returns the fraction of lookups served from cache
func (c *OddsCache) HitRate() float64 {
	hits, misses := c.hitCount.Load(), c.missCount.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
