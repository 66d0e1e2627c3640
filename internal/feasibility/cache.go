package feasibility

import (
	"sync"

	"github.com/piwi3910/PitPlan/internal/model"
)

// CacheKey identifies a computed table. Any change to the region geometry,
// the point set revision or the settings produces a different key.
type CacheKey struct {
	Fingerprint uint64
	PointSetID  string
	Standoff    float64
	Clearance   float64
}

// Cache stores computed valid start angle tables.
type Cache struct {
	mu     sync.RWMutex
	tables map[CacheKey][model.AngleTableSize]bool
}

func NewCache() *Cache {
	return &Cache{tables: make(map[CacheKey][model.AngleTableSize]bool)}
}

// Get returns the cached table for key.
func (c *Cache) Get(key CacheKey) ([model.AngleTableSize]bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[key]
	return t, ok
}

// Put stores a table.
func (c *Cache) Put(key CacheKey, table [model.AngleTableSize]bool) {
	c.mu.Lock()
	c.tables[key] = table
	c.mu.Unlock()
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// DropPointSet evicts every table computed against the given point set revision.
func (c *Cache) DropPointSet(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.tables {
		if k.PointSetID == id {
			delete(c.tables, k)
		}
	}
}
