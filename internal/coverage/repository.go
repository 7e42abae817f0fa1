package coverage

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zaiqahq/storefront/internal/shared/errors"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

// Repository provides database operations for areas and delivery zones
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new coverage repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadAll reads every area and zone, ordered for the catalog. Called at
// startup and on explicit refresh; resolution itself never touches the
// database.
func (r *Repository) LoadAll(ctx context.Context) ([]Area, []DeliveryZone, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, city, polygon, center_lat, center_lng, is_active, position,
			created_at, updated_at
		FROM areas
		ORDER BY position, created_at, id`)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load areas")
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, nil, err
		}
		areas = append(areas, area)
	}

	zoneRows, err := r.pool.Query(ctx, `
		SELECT id, area_id, fee_structure, delivery_fee, base_fee, fee_per_km,
			max_distance_km, min_order_amount, estimated_time, free_delivery_above,
			is_active, created_at, updated_at
		FROM delivery_zones`)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load delivery zones")
	}
	defer zoneRows.Close()

	var zones []DeliveryZone
	for zoneRows.Next() {
		zone, err := scanZone(zoneRows)
		if err != nil {
			return nil, nil, err
		}
		zones = append(zones, zone)
	}

	return areas, zones, nil
}

// CreateArea creates a new area
func (r *Repository) CreateArea(ctx context.Context, area *Area) error {
	polygon, err := json.Marshal(area.Polygon)
	if err != nil {
		return errors.Wrap(err, "failed to encode polygon")
	}

	query := `
		INSERT INTO areas (
			id, name, city, polygon, center_lat, center_lng, is_active, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7,
			COALESCE((SELECT MAX(position) FROM areas), 0) + 1
		)`

	_, err = r.pool.Exec(ctx, query,
		area.ID, area.Name, area.City, polygon,
		area.Center.Lat, area.Center.Lng, area.IsActive,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("area with this id already exists")
		}
		return errors.Wrap(err, "failed to create area")
	}

	return nil
}

// UpdateArea updates an area's name, city, polygon and cached center
func (r *Repository) UpdateArea(ctx context.Context, area *Area) error {
	polygon, err := json.Marshal(area.Polygon)
	if err != nil {
		return errors.Wrap(err, "failed to encode polygon")
	}

	query := `
		UPDATE areas SET
			name = $2, city = $3, polygon = $4, center_lat = $5, center_lng = $6,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		area.ID, area.Name, area.City, polygon, area.Center.Lat, area.Center.Lng,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update area")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("area", area.ID.String())
	}

	return nil
}

// SetAreaActive toggles an area's active flag
func (r *Repository) SetAreaActive(ctx context.Context, id types.ID, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE areas SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return errors.Wrap(err, "failed to set area active")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("area", id.String())
	}
	return nil
}

// DeleteArea deletes an area; the zone cascades at the schema level
func (r *Repository) DeleteArea(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM areas WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete area")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("area", id.String())
	}
	return nil
}

// UpsertZone creates or replaces the delivery zone for an area
func (r *Repository) UpsertZone(ctx context.Context, zone *DeliveryZone) error {
	var freeAbove *int64
	if zone.FreeDeliveryAbove != nil {
		v := int64(*zone.FreeDeliveryAbove)
		freeAbove = &v
	}

	query := `
		INSERT INTO delivery_zones (
			id, area_id, fee_structure, delivery_fee, base_fee, fee_per_km,
			max_distance_km, min_order_amount, estimated_time, free_delivery_above, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (area_id) DO UPDATE SET
			fee_structure = EXCLUDED.fee_structure,
			delivery_fee = EXCLUDED.delivery_fee,
			base_fee = EXCLUDED.base_fee,
			fee_per_km = EXCLUDED.fee_per_km,
			max_distance_km = EXCLUDED.max_distance_km,
			min_order_amount = EXCLUDED.min_order_amount,
			estimated_time = EXCLUDED.estimated_time,
			free_delivery_above = EXCLUDED.free_delivery_above,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query,
		zone.ID, zone.AreaID, zone.FeeStructure,
		int64(zone.DeliveryFee), int64(zone.BaseFee), zone.FeePerKm,
		zone.MaxDistanceKm, int64(zone.MinOrderAmount), zone.EstimatedTime,
		freeAbove, zone.IsActive,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert delivery zone")
	}

	return nil
}

func scanArea(rows pgx.Rows) (Area, error) {
	var (
		area       Area
		polygonRaw []byte
	)
	err := rows.Scan(
		&area.ID, &area.Name, &area.City, &polygonRaw,
		&area.Center.Lat, &area.Center.Lng, &area.IsActive, &area.Position,
		&area.CreatedAt, &area.UpdatedAt,
	)
	if err != nil {
		return Area{}, errors.Wrap(err, "failed to scan area")
	}
	if err := json.Unmarshal(polygonRaw, &area.Polygon); err != nil {
		return Area{}, errors.Wrap(err, "failed to decode area polygon")
	}
	return area, nil
}

func scanZone(rows pgx.Rows) (DeliveryZone, error) {
	var (
		zone        DeliveryZone
		deliveryFee int64
		baseFee     int64
		minOrder    int64
		freeAbove   *int64
	)
	err := rows.Scan(
		&zone.ID, &zone.AreaID, &zone.FeeStructure, &deliveryFee, &baseFee,
		&zone.FeePerKm, &zone.MaxDistanceKm, &minOrder, &zone.EstimatedTime,
		&freeAbove, &zone.IsActive, &zone.CreatedAt, &zone.UpdatedAt,
	)
	if err != nil {
		return DeliveryZone{}, errors.Wrap(err, "failed to scan delivery zone")
	}
	zone.DeliveryFee = types.Money(deliveryFee)
	zone.BaseFee = types.Money(baseFee)
	zone.MinOrderAmount = types.Money(minOrder)
	if freeAbove != nil {
		m := types.Money(*freeAbove)
		zone.FreeDeliveryAbove = &m
	}
	return zone, nil
}
