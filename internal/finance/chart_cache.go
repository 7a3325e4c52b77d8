package finance

import (
	"sync"
	"time"
)

// DefaultChartCacheTTL applies when NewChartCache is given a non-positive TTL.
const DefaultChartCacheTTL = 60 * time.Second

type chartCacheEntry struct {
	createdAt time.Time
	image     []byte
}

// ChartCache keeps rendered chart images for a short time so repeated
// requests for the same selection do not re-render.
type ChartCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]chartCacheEntry
	now     func() time.Time
}

func NewChartCache(ttl time.Duration) *ChartCache {
	if ttl <= 0 {
		ttl = DefaultChartCacheTTL
	}
	return &ChartCache{ttl: ttl, entries: map[string]chartCacheEntry{}, now: time.Now}
}

func (c *ChartCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		if c.now().Before(entry.createdAt.Add(c.ttl)) {
			img := make([]byte, len(entry.image))
			copy(img, entry.image)
			return img, true
		}
		delete(c.entries, key)
	}
	return nil, false
}

// Set stores img under key and drops every expired entry.
func (c *ChartCache) Set(key string, img []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, entry := range c.entries {
		if !now.Before(entry.createdAt.Add(c.ttl)) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = chartCacheEntry{createdAt: now, image: img}
}
