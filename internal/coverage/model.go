package coverage

import (
	"time"

	"github.com/zaiqahq/storefront/internal/geo"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

// FeeStructure selects how a zone prices delivery
type FeeStructure string

const (
	FeeStructureFlat     FeeStructure = "flat"
	FeeStructureDistance FeeStructure = "distance"
)

// Area is an administratively defined named region with a coverage polygon.
// Center is derived from the polygon at create/update time and cached so the
// storefront map can place a pin without recomputing.
type Area struct {
	ID       types.ID       `json:"id"`
	Name     string         `json:"name"`
	City     string         `json:"city"`
	Polygon  geo.Polygon    `json:"polygon"`
	Center   geo.Coordinate `json:"center"`
	IsActive bool           `json:"is_active"`

	// Position fixes the catalog listing order. When polygons overlap, the
	// lowest-positioned active area wins resolution.
	Position int `json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeliveryZone is the pricing and availability rule attached to an Area
// (1:1, optional). An active Area without an active zone is geographically
// covered but not yet deliverable.
type DeliveryZone struct {
	ID           types.ID     `json:"id"`
	AreaID       types.ID     `json:"area_id"`
	FeeStructure FeeStructure `json:"fee_structure"`

	// Flat pricing
	DeliveryFee types.Money `json:"delivery_fee,omitempty"`

	// Distance pricing
	BaseFee       types.Money `json:"base_fee,omitempty"`
	FeePerKm      float64     `json:"fee_per_km,omitempty"`
	MaxDistanceKm float64     `json:"max_distance_km,omitempty"`

	MinOrderAmount    types.Money  `json:"min_order_amount"`
	EstimatedTime     string       `json:"estimated_time"` // free text, e.g. "30-45 min"
	FreeDeliveryAbove *types.Money `json:"free_delivery_above,omitempty"`
	IsActive          bool         `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateAreaRequest is the admin request to create an area
type CreateAreaRequest struct {
	Name     string      `json:"name"`
	City     string      `json:"city"`
	Polygon  geo.Polygon `json:"polygon"`
	IsActive *bool       `json:"is_active,omitempty"`
}

// UpdateAreaRequest is the admin request to update an area
type UpdateAreaRequest struct {
	Name    *string      `json:"name,omitempty"`
	City    *string      `json:"city,omitempty"`
	Polygon *geo.Polygon `json:"polygon,omitempty"`
}

// UpsertZoneRequest is the admin request to create or replace an area's zone
type UpsertZoneRequest struct {
	FeeStructure      FeeStructure `json:"fee_structure"`
	DeliveryFee       types.Money  `json:"delivery_fee"`
	BaseFee           types.Money  `json:"base_fee"`
	FeePerKm          float64      `json:"fee_per_km"`
	MaxDistanceKm     float64      `json:"max_distance_km"`
	MinOrderAmount    types.Money  `json:"min_order_amount"`
	EstimatedTime     string       `json:"estimated_time"`
	FreeDeliveryAbove *types.Money `json:"free_delivery_above,omitempty"`
	IsActive          *bool        `json:"is_active,omitempty"`
}

// Validate checks the create request against the data-model invariants.
// Returns field -> problem for every violation.
func (r CreateAreaRequest) Validate(bounds geo.BoundingBox) map[string]string {
	problems := make(map[string]string)
	if r.Name == "" {
		problems["name"] = "name is required"
	}
	if r.City == "" {
		problems["city"] = "city is required"
	}
	if err := geo.ValidatePolygon(r.Polygon, bounds); err != nil {
		problems["polygon"] = err.Error()
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// Validate checks the zone request against the data-model invariants.
func (r UpsertZoneRequest) Validate() map[string]string {
	problems := make(map[string]string)

	switch r.FeeStructure {
	case FeeStructureFlat:
		if r.DeliveryFee < 0 {
			problems["delivery_fee"] = "must not be negative"
		}
	case FeeStructureDistance:
		if r.BaseFee < 0 {
			problems["base_fee"] = "must not be negative"
		}
		if r.FeePerKm < 0 {
			problems["fee_per_km"] = "must not be negative"
		}
		if r.MaxDistanceKm <= 0 {
			problems["max_distance_km"] = "must be greater than zero"
		}
	default:
		problems["fee_structure"] = "must be flat or distance"
	}

	if r.MinOrderAmount < 0 {
		problems["min_order_amount"] = "must not be negative"
	}
	if r.FreeDeliveryAbove != nil && *r.FreeDeliveryAbove < 0 {
		problems["free_delivery_above"] = "must not be negative"
	}

	if len(problems) == 0 {
		return nil
	}
	return problems
}
