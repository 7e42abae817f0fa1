package coverage

import (
	"sort"
	"sync"

	"github.com/zaiqahq/storefront/internal/shared/types"
)

// snapshot is an immutable view of the catalog. Readers share the current
// snapshot; mutations build a replacement off to the side and swap the
// pointer, so a writer never holds the lock while validating polygons or
// scanning the collection.
type snapshot struct {
	areas  []Area                    // catalog order: Position, then CreatedAt, then ID
	active []Area                    // precomputed subset with IsActive
	byID   map[types.ID]int          // index into areas
	zones  map[types.ID]DeliveryZone // keyed by area ID
}

func emptySnapshot() *snapshot {
	return &snapshot{
		byID:  make(map[types.ID]int),
		zones: make(map[types.ID]DeliveryZone),
	}
}

// Catalog owns the in-memory Area and DeliveryZone collections. Many
// concurrent readers, rare serialized writers.
type Catalog struct {
	mu   sync.RWMutex
	snap *snapshot

	// wmu serializes writers across the whole clone-rebuild-swap sequence.
	// Without it two concurrent mutations clone the same base snapshot and
	// the second swap silently discards the first. Readers never take it;
	// they only contend on mu for the pointer read.
	wmu sync.Mutex
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{snap: emptySnapshot()}
}

func (c *Catalog) snapshot() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Catalog) swap(s *snapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

// rebuild derives a fresh snapshot from a working copy of the areas and
// zones. Sorting keeps the listing order stable across mutations so the
// first-match precedence of resolution stays deterministic.
func rebuild(areas []Area, zones map[types.ID]DeliveryZone) *snapshot {
	sort.SliceStable(areas, func(i, j int) bool {
		if areas[i].Position != areas[j].Position {
			return areas[i].Position < areas[j].Position
		}
		if !areas[i].CreatedAt.Equal(areas[j].CreatedAt) {
			return areas[i].CreatedAt.Before(areas[j].CreatedAt)
		}
		return areas[i].ID < areas[j].ID
	})

	s := &snapshot{
		areas: areas,
		byID:  make(map[types.ID]int, len(areas)),
		zones: zones,
	}
	for i, a := range areas {
		s.byID[a.ID] = i
		if a.IsActive {
			s.active = append(s.active, a)
		}
	}
	return s
}

// clone copies the snapshot's collections for mutation.
func (s *snapshot) clone() ([]Area, map[types.ID]DeliveryZone) {
	areas := make([]Area, len(s.areas))
	copy(areas, s.areas)
	zones := make(map[types.ID]DeliveryZone, len(s.zones))
	for k, v := range s.zones {
		zones[k] = v
	}
	return areas, zones
}

// ListActiveAreas returns the active areas in catalog order. The returned
// slice is shared with the snapshot and must not be modified.
func (c *Catalog) ListActiveAreas() []Area {
	return c.snapshot().active
}

// ListAreas returns every area, active or not, in catalog order.
func (c *Catalog) ListAreas() []Area {
	return c.snapshot().areas
}

// GetArea looks up an area by ID.
func (c *Catalog) GetArea(id types.ID) (Area, bool) {
	s := c.snapshot()
	i, ok := s.byID[id]
	if !ok {
		return Area{}, false
	}
	return s.areas[i], true
}

// ZoneForArea returns the delivery zone configured for an area, if any.
func (c *Catalog) ZoneForArea(areaID types.ID) (DeliveryZone, bool) {
	z, ok := c.snapshot().zones[areaID]
	return z, ok
}

// UpsertArea inserts or replaces an area. A new area is appended to the
// listing order; an existing one keeps its position.
func (c *Catalog) UpsertArea(a Area) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	s := c.snapshot()
	areas, zones := s.clone()
	if i, ok := s.byID[a.ID]; ok {
		a.Position = areas[i].Position
		areas[i] = a
	} else {
		a.Position = nextPosition(areas)
		areas = append(areas, a)
	}
	c.swap(rebuild(areas, zones))
}

func nextPosition(areas []Area) int {
	max := 0
	for _, a := range areas {
		if a.Position > max {
			max = a.Position
		}
	}
	return max + 1
}

// SetAreaActive toggles an area's active flag. Returns false if the area is
// unknown.
func (c *Catalog) SetAreaActive(id types.ID, active bool) bool {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	s := c.snapshot()
	i, ok := s.byID[id]
	if !ok {
		return false
	}
	areas, zones := s.clone()
	areas[i].IsActive = active
	c.swap(rebuild(areas, zones))
	return true
}

// DeleteArea removes an area and cascades to its delivery zone. Returns
// false if the area is unknown.
func (c *Catalog) DeleteArea(id types.ID) bool {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	s := c.snapshot()
	i, ok := s.byID[id]
	if !ok {
		return false
	}
	areas, zones := s.clone()
	areas = append(areas[:i], areas[i+1:]...)
	delete(zones, id)
	c.swap(rebuild(areas, zones))
	return true
}

// UpsertZone inserts or replaces the zone for its area.
func (c *Catalog) UpsertZone(z DeliveryZone) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	s := c.snapshot()
	areas, zones := s.clone()
	zones[z.AreaID] = z
	c.swap(rebuild(areas, zones))
}

// Replace swaps in a full data set, used by the repository load/refresh path
// and the legacy importer.
func (c *Catalog) Replace(areas []Area, zones []DeliveryZone) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	zoneMap := make(map[types.ID]DeliveryZone, len(zones))
	for _, z := range zones {
		zoneMap[z.AreaID] = z
	}
	cp := make([]Area, len(areas))
	copy(cp, areas)
	c.swap(rebuild(cp, zoneMap))
}

// Size reports the number of areas and configured zones.
func (c *Catalog) Size() (areas int, zones int) {
	s := c.snapshot()
	return len(s.areas), len(s.zones)
}
