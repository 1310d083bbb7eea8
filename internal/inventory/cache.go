package inventory

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/windingtree/wt-client/pkg/types"
)

// DefaultCacheTTL is how long a snapshot stays fresh.
const DefaultCacheTTL = 5 * time.Minute

type cachedSnapshot struct {
	snapshot  *types.PropertySnapshot
	fetchedAt time.Time
}

// Cache holds property snapshots keyed by address. It is owned by the
// caller; the Reader never consults it. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[common.Address]*cachedSnapshot
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewCache creates a cache. A non-positive ttl keeps entries until invalidated.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[common.Address]*cachedSnapshot),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Get returns a fresh snapshot for addr.
func (c *Cache) Get(addr common.Address) (*types.PropertySnapshot, bool) {
	c.mu.RLock()
	entry, ok := c.entries[addr]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.nowFunc().Sub(entry.fetchedAt) > c.ttl {
		c.Invalidate(addr)
		return nil, false
	}
	return entry.snapshot, true
}

// Put stores snap under its address.
func (c *Cache) Put(snap *types.PropertySnapshot) {
	if snap == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[snap.Address] = &cachedSnapshot{snapshot: snap, fetchedAt: c.nowFunc()}
}

// Invalidate drops the snapshot of addr.
func (c *Cache) Invalidate(addr common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, addr)
}

// Clear drops every snapshot.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[common.Address]*cachedSnapshot)
}

// Addresses lists cached properties in address order.
func (c *Cache) Addresses() []common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]common.Address, 0, len(c.entries))
	for addr := range c.entries {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Cmp(out[j]) < 0
	})
	return out
}

// Len returns the number of cached snapshots.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
