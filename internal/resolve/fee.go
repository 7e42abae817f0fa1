package resolve

import (
	"fmt"

	"github.com/zaiqahq/storefront/internal/coverage"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

// ErrInvalidZoneConfig reports a malformed zone record: a distance-priced
// zone with a negative per-km rate or no maximum distance. This is a
// data-integrity error for the admin surface, not a runtime degradation, and
// is never silently defaulted.
var ErrInvalidZoneConfig = fmt.Errorf("invalid delivery zone configuration")

// ComputeFee derives the delivery fee for a resolved zone.
//
// Flat zones charge their fixed fee. Distance zones charge
// base + perKm * distance, with distance clamped at the zone's maximum; the
// returned atRangeLimit flag tells the caller the address sits past that
// maximum. When the subtotal reaches the free-delivery threshold the fee is
// zero regardless of structure. Fees are rounded half up to the nearest
// whole currency unit.
func ComputeFee(zone coverage.DeliveryZone, orderSubtotal types.Money, distanceKm float64) (fee types.Money, atRangeLimit bool, err error) {
	switch zone.FeeStructure {
	case coverage.FeeStructureFlat:
		fee = zone.DeliveryFee

	case coverage.FeeStructureDistance:
		// A zero per-km rate is a valid base-fee-only zone; only negative
		// rates and a missing maximum are rejected.
		if zone.FeePerKm < 0 || zone.MaxDistanceKm <= 0 {
			return 0, false, fmt.Errorf("%w: distance zone %s needs fee_per_km >= 0 and max_distance_km > 0", ErrInvalidZoneConfig, zone.ID)
		}
		d := distanceKm
		if d < 0 {
			d = 0
		}
		if d > zone.MaxDistanceKm {
			d = zone.MaxDistanceKm
			atRangeLimit = true
		}
		fee = types.MoneyFromFloat(zone.BaseFee.Float64() + zone.FeePerKm*d)

	default:
		return 0, false, fmt.Errorf("%w: unknown fee structure %q", ErrInvalidZoneConfig, zone.FeeStructure)
	}

	if zone.FreeDeliveryAbove != nil && orderSubtotal >= *zone.FreeDeliveryAbove {
		return 0, atRangeLimit, nil
	}
	return fee, atRangeLimit, nil
}
