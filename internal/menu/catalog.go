package menu

import (
	"sort"
	"sync"

	"github.com/zaiqahq/storefront/internal/shared/types"
)

// Catalog holds the menu items in memory so the storefront's menu lookups
// never touch the database. Same discipline as the coverage catalog: an
// immutable slice swapped under a read-write lock.
type Catalog struct {
	mu    sync.RWMutex
	items []Item
	byID  map[types.ID]int
}

// NewCatalog creates an empty menu catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[types.ID]int)}
}

// List returns every item in catalog order. The returned slice is shared and
// must not be modified.
func (c *Catalog) List() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items
}

// Get looks up an item by ID.
func (c *Catalog) Get(id types.ID) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Upsert inserts or replaces an item.
func (c *Catalog) Upsert(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]Item, len(c.items))
	copy(items, c.items)
	if i, ok := c.byID[item.ID]; ok {
		items[i] = item
	} else {
		items = append(items, item)
	}
	c.set(items)
}

// Delete removes an item. Returns false if unknown.
func (c *Catalog) Delete(id types.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.byID[id]
	if !ok {
		return false
	}
	items := make([]Item, 0, len(c.items)-1)
	items = append(items, c.items[:i]...)
	items = append(items, c.items[i+1:]...)
	c.set(items)
	return true
}

// Replace swaps in a full item set, used by the repository load path and the
// legacy importer.
func (c *Catalog) Replace(items []Item) {
	cp := make([]Item, len(items))
	copy(cp, items)
	sort.SliceStable(cp, func(i, j int) bool {
		if !cp[i].CreatedAt.Equal(cp[j].CreatedAt) {
			return cp[i].CreatedAt.Before(cp[j].CreatedAt)
		}
		return cp[i].ID < cp[j].ID
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(cp)
}

// set installs the new slice and rebuilds the index. Callers hold the lock.
func (c *Catalog) set(items []Item) {
	byID := make(map[types.ID]int, len(items))
	for i, item := range items {
		byID[item.ID] = i
	}
	c.items = items
	c.byID = byID
}
