package layout

import (
	"sync"

	"tirc/internal/types"
)

type cacheEntry struct {
	Layout TypeLayout
	Err    *LayoutError
}

// cache is shared by concurrent lowerings of one unit.
type cache struct {
	mu     sync.RWMutex
	byType map[types.TypeID]*cacheEntry
}

func newCache() *cache {
	return &cache{byType: make(map[types.TypeID]*cacheEntry, 256)}
}

func (c *cache) get(id types.TypeID) (*cacheEntry, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byType[id]
	return e, ok
}

func (c *cache) put(id types.TypeID, e *cacheEntry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e == nil {
		delete(c.byType, id)
		return
	}
	c.byType[id] = e
}

func (c *cache) len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byType)
}
