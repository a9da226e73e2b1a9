package auction

import (
	"sync"
	"time"
)

// TTLCache is an in-memory aggregate cache with per-entry expiry. It
// is purely a load-shedding optimization: entries may be stale across
// nodes and correctness never depends on a hit; the store's version
// check is the only authority. Entries are immutable snapshots: Put
// and Get both copy, so a command applying events to its working
// aggregate never shares state with another in-flight command.
type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[AuctionID]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	aggregate *Auction
	expiresAt time.Time
}

// NewTTLCache creates a cache with the given entry lifetime.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[AuctionID]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a private copy of a cached aggregate, expiring lazily.
func (c *TTLCache) Get(auctionID AuctionID) (*Auction, bool) {
	c.mu.RLock()
	entry, ok := c.entries[auctionID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.Invalidate(auctionID)
		return nil, false
	}
	return entry.aggregate.Clone(), true
}

// Put stores a snapshot of the aggregate for the cache TTL. The caller
// keeps its instance; later mutations do not reach the cache.
func (c *TTLCache) Put(auctionID AuctionID, aggregate *Auction) {
	snapshot := aggregate.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[auctionID] = cacheEntry{aggregate: snapshot, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops an entry.
func (c *TTLCache) Invalidate(auctionID AuctionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, auctionID)
}
