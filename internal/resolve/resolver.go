package resolve

import (
	"log"
	"time"

	"github.com/zaiqahq/storefront/internal/coverage"
	"github.com/zaiqahq/storefront/internal/geo"
	"github.com/zaiqahq/storefront/internal/shared/metrics"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

// Reason classifies the outcome of a resolution. These are result states the
// caller branches on, not errors; the presentation layer maps them to
// availability messaging.
type Reason string

const (
	ReasonOutOfRegion       Reason = "out_of_region"
	ReasonNoCoverage        Reason = "no_coverage"
	ReasonZoneNotConfigured Reason = "zone_not_configured"
	ReasonResolved          Reason = "resolved"
)

// CoverageSource is the catalog view the resolver needs.
type CoverageSource interface {
	ListActiveAreas() []coverage.Area
	ZoneForArea(areaID types.ID) (coverage.DeliveryZone, bool)
}

// Options carries the optional inputs for fee computation.
type Options struct {
	// OrderSubtotal enables the free-delivery override when set
	OrderSubtotal *types.Money
	// DistanceKm overrides the straight-line venue distance for
	// distance-priced zones
	DistanceKm *float64
}

// Result is the resolution outcome for a single coordinate. Constructed per
// query, never persisted.
type Result struct {
	InService bool                   `json:"in_service"`
	Reason    Reason                 `json:"reason"`
	Area      *coverage.Area         `json:"area,omitempty"`
	Zone      *coverage.DeliveryZone `json:"zone,omitempty"`
	Fee       *types.Money           `json:"fee,omitempty"`
	// AtRangeLimit is set when the delivery distance exceeded the zone's
	// maximum and the fee was clamped; callers should message "edge of
	// serviceable range"
	AtRangeLimit bool `json:"at_range_limit,omitempty"`
}

// Resolver answers whether a coordinate is deliverable and under what terms.
// It is a deterministic function over the catalog snapshot; all state lives
// in the CoverageSource.
type Resolver struct {
	source CoverageSource
	bounds geo.BoundingBox
	venue  geo.Coordinate
}

// NewResolver creates a resolver for the given operating region. venue is
// the restaurant origin used to derive delivery distance when the caller
// does not supply one.
func NewResolver(source CoverageSource, bounds geo.BoundingBox, venue geo.Coordinate) *Resolver {
	return &Resolver{source: source, bounds: bounds, venue: venue}
}

// Resolve maps a coordinate to an area, zone and fee. Overlapping polygons
// are settled by catalog order: the earliest-listed active area wins. A
// stored polygon that fails validation is logged and skipped so one bad row
// cannot take down every lookup.
func (r *Resolver) Resolve(coord geo.Coordinate, opts Options) Result {
	start := time.Now()
	result := r.resolve(coord, opts)
	metrics.RecordResolution(string(result.Reason), time.Since(start))
	return result
}

func (r *Resolver) resolve(coord geo.Coordinate, opts Options) Result {
	if !r.bounds.Contains(coord) {
		return Result{InService: false, Reason: ReasonOutOfRegion}
	}

	var matched *coverage.Area
	for _, area := range r.source.ListActiveAreas() {
		if err := geo.ValidatePolygon(area.Polygon, r.bounds); err != nil {
			log.Printf("resolve: skipping area %s (%s): %v", area.ID, area.Name, err)
			metrics.RecordPolygonSkipped()
			continue
		}
		if geo.PointInPolygon(coord, area.Polygon) {
			a := area
			matched = &a
			break
		}
	}
	if matched == nil {
		return Result{InService: false, Reason: ReasonNoCoverage}
	}

	zone, ok := r.source.ZoneForArea(matched.ID)
	if !ok || !zone.IsActive {
		return Result{InService: true, Reason: ReasonZoneNotConfigured, Area: matched}
	}

	var subtotal types.Money
	if opts.OrderSubtotal != nil {
		subtotal = *opts.OrderSubtotal
	}
	distanceKm := geo.HaversineKm(r.venue, coord)
	if opts.DistanceKm != nil {
		distanceKm = *opts.DistanceKm
	}

	fee, atLimit, err := ComputeFee(zone, subtotal, distanceKm)
	if err != nil {
		// Data-integrity problem in the zone record. The area stays
		// covered but undeliverable until an admin fixes the zone.
		log.Printf("resolve: zone %s for area %s is misconfigured: %v", zone.ID, matched.ID, err)
		return Result{InService: true, Reason: ReasonZoneNotConfigured, Area: matched}
	}
	metrics.RecordFeeComputed(string(zone.FeeStructure))

	return Result{
		InService:    true,
		Reason:       ReasonResolved,
		Area:         matched,
		Zone:         &zone,
		Fee:          &fee,
		AtRangeLimit: atLimit,
	}
}
