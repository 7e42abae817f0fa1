package resolve

import (
	"testing"
	"time"

	"github.com/zaiqahq/storefront/internal/coverage"
	"github.com/zaiqahq/storefront/internal/geo"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

var (
	pakistanBounds = geo.BoundingBox{MinLat: 23.5, MaxLat: 37.5, MinLng: 60.5, MaxLng: 77.5}
	lahoreVenue    = geo.Coordinate{Lat: 31.5204, Lng: 74.3587}
)

func square(minLat, minLng, maxLat, maxLng float64) geo.Polygon {
	return geo.Polygon{
		{Lat: minLat, Lng: minLng},
		{Lat: minLat, Lng: maxLng},
		{Lat: maxLat, Lng: maxLng},
		{Lat: maxLat, Lng: minLng},
		{Lat: minLat, Lng: minLng},
	}
}

func newArea(name string, position int, ring geo.Polygon) coverage.Area {
	return coverage.Area{
		ID:        types.NewID(),
		Name:      name,
		City:      "Lahore",
		Polygon:   ring,
		Center:    geo.Centroid(ring),
		IsActive:  true,
		Position:  position,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func flatZone(areaID types.ID, fee types.Money) coverage.DeliveryZone {
	return coverage.DeliveryZone{
		ID:             types.NewID(),
		AreaID:         areaID,
		FeeStructure:   coverage.FeeStructureFlat,
		DeliveryFee:    fee,
		MinOrderAmount: 299,
		EstimatedTime:  "30-45 min",
		IsActive:       true,
	}
}

func TestResolveFlatZone(t *testing.T) {
	catalog := coverage.NewCatalog()
	gulberg := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	catalog.Replace([]coverage.Area{gulberg}, []coverage.DeliveryZone{flatZone(gulberg.ID, 99)})

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)
	result := r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{})

	if !result.InService || result.Reason != ReasonResolved {
		t.Fatalf("expected resolved, got %+v", result)
	}
	if result.Area == nil || result.Area.Name != "Gulberg" {
		t.Errorf("expected Gulberg, got %+v", result.Area)
	}
	if result.Fee == nil || *result.Fee != 99 {
		t.Errorf("expected fee 99, got %+v", result.Fee)
	}
	if result.Zone == nil || result.Zone.MinOrderAmount != 299 {
		t.Errorf("expected zone with min order 299, got %+v", result.Zone)
	}
}

func TestResolveOutOfRegion(t *testing.T) {
	catalog := coverage.NewCatalog()
	r := NewResolver(catalog, pakistanBounds, lahoreVenue)

	result := r.Resolve(geo.Coordinate{Lat: 0, Lng: 0}, Options{})
	if result.InService || result.Reason != ReasonOutOfRegion {
		t.Errorf("expected out_of_region, got %+v", result)
	}
	if result.Area != nil || result.Zone != nil || result.Fee != nil {
		t.Errorf("out-of-region result must carry no area, zone or fee: %+v", result)
	}
}

func TestResolveNoCoverage(t *testing.T) {
	catalog := coverage.NewCatalog()
	gulberg := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	catalog.Replace([]coverage.Area{gulberg}, []coverage.DeliveryZone{flatZone(gulberg.ID, 99)})

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)

	// Inside the region but outside every polygon.
	result := r.Resolve(geo.Coordinate{Lat: 33.68, Lng: 73.04}, Options{})
	if result.InService || result.Reason != ReasonNoCoverage {
		t.Errorf("expected no_coverage, got %+v", result)
	}
}

func TestResolveZoneNotConfigured(t *testing.T) {
	catalog := coverage.NewCatalog()
	gulberg := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	catalog.Replace([]coverage.Area{gulberg}, nil)

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)
	result := r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{})

	if !result.InService || result.Reason != ReasonZoneNotConfigured {
		t.Fatalf("expected zone_not_configured, got %+v", result)
	}
	if result.Area == nil || result.Area.Name != "Gulberg" {
		t.Errorf("expected matched area to be reported, got %+v", result.Area)
	}
	if result.Zone != nil || result.Fee != nil {
		t.Errorf("unconfigured zone must carry no zone or fee: %+v", result)
	}
}

func TestResolveInactiveZoneNotConfigured(t *testing.T) {
	catalog := coverage.NewCatalog()
	gulberg := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	zone := flatZone(gulberg.ID, 99)
	zone.IsActive = false
	catalog.Replace([]coverage.Area{gulberg}, []coverage.DeliveryZone{zone})

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)
	result := r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{})

	if result.Reason != ReasonZoneNotConfigured {
		t.Errorf("expected zone_not_configured for inactive zone, got %+v", result)
	}
}

func TestResolveInactiveAreaSkipped(t *testing.T) {
	catalog := coverage.NewCatalog()
	gulberg := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	gulberg.IsActive = false
	catalog.Replace([]coverage.Area{gulberg}, []coverage.DeliveryZone{flatZone(gulberg.ID, 99)})

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)
	result := r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{})

	if result.InService || result.Reason != ReasonNoCoverage {
		t.Errorf("expected no_coverage for inactive area, got %+v", result)
	}
}

func TestResolveOverlapPrecedence(t *testing.T) {
	catalog := coverage.NewCatalog()
	// Both polygons contain the query point; the earlier-listed area wins.
	first := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	second := newArea("Gulberg Extension", 2, square(31.48, 74.30, 31.56, 74.38))
	catalog.Replace(
		[]coverage.Area{second, first},
		[]coverage.DeliveryZone{flatZone(first.ID, 99), flatZone(second.ID, 149)},
	)

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)
	result := r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{})

	if result.Area == nil || result.Area.Name != "Gulberg" {
		t.Fatalf("expected first-listed area to win, got %+v", result.Area)
	}
	if result.Fee == nil || *result.Fee != 99 {
		t.Errorf("expected winning area's fee 99, got %+v", result.Fee)
	}
}

func TestResolveSkipsInvalidPolygon(t *testing.T) {
	catalog := coverage.NewCatalog()
	// First-listed area has an unclosed ring; resolution must skip it and
	// still match the valid one behind it.
	broken := newArea("Broken", 1, geo.Polygon{
		{Lat: 31.50, Lng: 74.32},
		{Lat: 31.50, Lng: 74.36},
		{Lat: 31.54, Lng: 74.36},
		{Lat: 31.54, Lng: 74.32},
	})
	valid := newArea("Gulberg", 2, square(31.50, 74.32, 31.54, 74.36))
	catalog.Replace(
		[]coverage.Area{broken, valid},
		[]coverage.DeliveryZone{flatZone(valid.ID, 99)},
	)

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)
	result := r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{})

	if result.Reason != ReasonResolved {
		t.Fatalf("expected resolved via the valid area, got %+v", result)
	}
	if result.Area.Name != "Gulberg" {
		t.Errorf("expected Gulberg, got %s", result.Area.Name)
	}
}

func TestResolveMisconfiguredZoneDegrades(t *testing.T) {
	catalog := coverage.NewCatalog()
	gulberg := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	zone := coverage.DeliveryZone{
		ID:           types.NewID(),
		AreaID:       gulberg.ID,
		FeeStructure: coverage.FeeStructureDistance,
		// FeePerKm and MaxDistanceKm missing
		IsActive: true,
	}
	catalog.Replace([]coverage.Area{gulberg}, []coverage.DeliveryZone{zone})

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)
	result := r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{})

	if !result.InService || result.Reason != ReasonZoneNotConfigured {
		t.Errorf("expected zone_not_configured for misconfigured zone, got %+v", result)
	}
}

func TestResolveDistanceZoneWithOptions(t *testing.T) {
	catalog := coverage.NewCatalog()
	gulberg := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	zone := coverage.DeliveryZone{
		ID:            types.NewID(),
		AreaID:        gulberg.ID,
		FeeStructure:  coverage.FeeStructureDistance,
		BaseFee:       50,
		FeePerKm:      20,
		MaxDistanceKm: 10,
		IsActive:      true,
	}
	catalog.Replace([]coverage.Area{gulberg}, []coverage.DeliveryZone{zone})

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)

	d := 3.0
	result := r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{DistanceKm: &d})
	if result.Reason != ReasonResolved {
		t.Fatalf("expected resolved, got %+v", result)
	}
	if result.Fee == nil || *result.Fee != 110 {
		t.Errorf("expected fee 110 for 3 km, got %+v", result.Fee)
	}
	if result.AtRangeLimit {
		t.Error("3 km is within range")
	}

	far := 25.0
	result = r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{DistanceKm: &far})
	if result.Fee == nil || *result.Fee != 250 {
		t.Errorf("expected clamped fee 250, got %+v", result.Fee)
	}
	if !result.AtRangeLimit {
		t.Error("expected range-limit flag past the maximum")
	}
}

func TestResolveFreeDeliverySubtotal(t *testing.T) {
	catalog := coverage.NewCatalog()
	gulberg := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	zone := flatZone(gulberg.ID, 99)
	threshold := types.Money(1000)
	zone.FreeDeliveryAbove = &threshold
	catalog.Replace([]coverage.Area{gulberg}, []coverage.DeliveryZone{zone})

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)

	subtotal := types.Money(1200)
	result := r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{OrderSubtotal: &subtotal})
	if result.Fee == nil || *result.Fee != 0 {
		t.Errorf("expected free delivery, got %+v", result.Fee)
	}

	small := types.Money(500)
	result = r.Resolve(geo.Coordinate{Lat: 31.52, Lng: 74.34}, Options{OrderSubtotal: &small})
	if result.Fee == nil || *result.Fee != 99 {
		t.Errorf("expected full fee below threshold, got %+v", result.Fee)
	}
}

func TestResolveDeterministic(t *testing.T) {
	catalog := coverage.NewCatalog()
	gulberg := newArea("Gulberg", 1, square(31.50, 74.32, 31.54, 74.36))
	catalog.Replace([]coverage.Area{gulberg}, []coverage.DeliveryZone{flatZone(gulberg.ID, 99)})

	r := NewResolver(catalog, pakistanBounds, lahoreVenue)
	coord := geo.Coordinate{Lat: 31.52, Lng: 74.34}

	first := r.Resolve(coord, Options{})
	for i := 0; i < 10; i++ {
		again := r.Resolve(coord, Options{})
		if again.Reason != first.Reason || *again.Fee != *first.Fee {
			t.Fatalf("resolution not deterministic: %+v vs %+v", again, first)
		}
	}
}
