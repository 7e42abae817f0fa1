package legacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	"github.com/zaiqahq/storefront/internal/coverage"
	"github.com/zaiqahq/storefront/internal/geo"
	"github.com/zaiqahq/storefront/internal/menu"
	"github.com/zaiqahq/storefront/internal/shared/config"
	"github.com/zaiqahq/storefront/internal/shared/metrics"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

// Importer performs a one-way sync of coverage areas, zones and menu items
// from the previous storefront's SQL Server into the in-memory catalogs.
// Intended for the migration window only: while it runs, the legacy database
// is the source of truth and local admin edits will be overwritten on the
// next poll.
type Importer struct {
	db       *sql.DB
	cfg      config.LegacyConfig
	coverage *coverage.Catalog
	menus    *menu.Catalog
	bounds   geo.BoundingBox

	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a legacy importer targeting the given catalogs
func New(cfg config.LegacyConfig, cov *coverage.Catalog, menus *menu.Catalog, bounds geo.BoundingBox) *Importer {
	return &Importer{cfg: cfg, coverage: cov, menus: menus, bounds: bounds}
}

// Start opens the database connection and begins polling
func (i *Importer) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.running {
		return fmt.Errorf("importer already running")
	}

	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		i.cfg.Host, i.cfg.Port, i.cfg.Database, i.cfg.User, i.cfg.Password)
	if i.cfg.SSLMode != "disable" {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("failed to open legacy database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping legacy database: %w", err)
	}

	i.db = db
	i.running = true

	pollCtx, cancel := context.WithCancel(ctx)
	i.cancel = cancel

	i.wg.Add(1)
	go i.pollLoop(pollCtx)

	return nil
}

// Stop stops polling and closes the connection
func (i *Importer) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.running {
		return
	}
	i.cancel()
	i.wg.Wait()
	i.db.Close()
	i.running = false
}

func (i *Importer) pollLoop(ctx context.Context) {
	defer i.wg.Done()

	interval := time.Duration(i.cfg.PollSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Import immediately on start, then on the ticker.
	if err := i.ImportOnce(ctx); err != nil {
		log.Printf("legacy: initial import failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := i.ImportOnce(ctx); err != nil {
				log.Printf("legacy: import failed: %v", err)
			}
		}
	}
}

// ImportOnce pulls the full legacy data set and replaces the catalogs
func (i *Importer) ImportOnce(ctx context.Context) error {
	areas, zones, err := i.importCoverage(ctx)
	if err != nil {
		return err
	}
	items, err := i.importMenu(ctx)
	if err != nil {
		return err
	}

	i.coverage.Replace(areas, zones)
	i.menus.Replace(items)

	metrics.RecordLegacyImport("areas", len(areas))
	metrics.RecordLegacyImport("zones", len(zones))
	metrics.RecordLegacyImport("menu_items", len(items))
	log.Printf("legacy: imported %d areas, %d zones, %d menu items", len(areas), len(zones), len(items))
	return nil
}

func (i *Importer) importCoverage(ctx context.Context) ([]coverage.Area, []coverage.DeliveryZone, error) {
	query := fmt.Sprintf(`
		SELECT Code, Name, City, PolygonJson, IsActive, SortOrder
		FROM %s ORDER BY SortOrder, Code`, i.cfg.AreaTable)

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read legacy areas: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	areaIDByCode := make(map[string]types.ID)
	var areas []coverage.Area
	for rows.Next() {
		var (
			code, name, city, polygonJSON string
			isActive                      bool
			sortOrder                     int
		)
		if err := rows.Scan(&code, &name, &city, &polygonJSON, &isActive, &sortOrder); err != nil {
			return nil, nil, fmt.Errorf("failed to scan legacy area: %w", err)
		}

		var polygon geo.Polygon
		if err := json.Unmarshal([]byte(polygonJSON), &polygon); err != nil {
			log.Printf("legacy: skipping area %s: bad polygon json: %v", code, err)
			continue
		}
		// The legacy admin stored some rings unclosed; close them rather
		// than dropping the row.
		if len(polygon) >= 3 && polygon[0] != polygon[len(polygon)-1] {
			polygon = append(polygon, polygon[0])
		}
		if err := geo.ValidatePolygon(polygon, i.bounds); err != nil {
			log.Printf("legacy: skipping area %s: %v", code, err)
			continue
		}

		areaID := types.NewDeterministicID("legacy-area", code)
		areaIDByCode[code] = areaID
		areas = append(areas, coverage.Area{
			ID:        areaID,
			Name:      name,
			City:      city,
			Polygon:   polygon,
			Center:    geo.Centroid(polygon),
			IsActive:  isActive,
			Position:  sortOrder,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read legacy areas: %w", err)
	}

	zones, err := i.importZones(ctx, areaIDByCode, now)
	if err != nil {
		return nil, nil, err
	}
	return areas, zones, nil
}

func (i *Importer) importZones(ctx context.Context, areaIDByCode map[string]types.ID, now time.Time) ([]coverage.DeliveryZone, error) {
	query := fmt.Sprintf(`
		SELECT AreaCode, FeeType, DeliveryFee, BaseFee, FeePerKm, MaxDistanceKm,
			MinOrderAmount, EstimatedTime, FreeDeliveryAbove, IsActive
		FROM %s`, i.cfg.ZoneTable)

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy zones: %w", err)
	}
	defer rows.Close()

	var zones []coverage.DeliveryZone
	for rows.Next() {
		var (
			areaCode, feeType, estimatedTime string
			deliveryFee, baseFee, minOrder   int64
			feePerKm, maxDistanceKm          float64
			freeDeliveryAbove                sql.NullInt64
			isActive                         bool
		)
		err := rows.Scan(&areaCode, &feeType, &deliveryFee, &baseFee, &feePerKm,
			&maxDistanceKm, &minOrder, &estimatedTime, &freeDeliveryAbove, &isActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan legacy zone: %w", err)
		}

		areaID, ok := areaIDByCode[areaCode]
		if !ok {
			log.Printf("legacy: skipping zone for unknown area %s", areaCode)
			continue
		}

		structure := coverage.FeeStructureFlat
		if feeType == "distance" {
			structure = coverage.FeeStructureDistance
		}

		zone := coverage.DeliveryZone{
			ID:             types.NewDeterministicID("legacy-zone", areaCode),
			AreaID:         areaID,
			FeeStructure:   structure,
			DeliveryFee:    types.Money(deliveryFee),
			BaseFee:        types.Money(baseFee),
			FeePerKm:       feePerKm,
			MaxDistanceKm:  maxDistanceKm,
			MinOrderAmount: types.Money(minOrder),
			EstimatedTime:  estimatedTime,
			IsActive:       isActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if freeDeliveryAbove.Valid {
			m := types.Money(freeDeliveryAbove.Int64)
			zone.FreeDeliveryAbove = &m
		}
		zones = append(zones, zone)
	}
	return zones, rows.Err()
}

func (i *Importer) importMenu(ctx context.Context) ([]menu.Item, error) {
	query := fmt.Sprintf(`
		SELECT Code, Name, Category, Description, Price, IsAvailable, AreaCodesJson
		FROM %s ORDER BY Code`, i.cfg.MenuTable)

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy menu: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	var items []menu.Item
	for rows.Next() {
		var (
			code, name, category, description, areaCodesJSON string
			price                                            int64
			isAvailable                                      bool
		)
		err := rows.Scan(&code, &name, &category, &description, &price, &isAvailable, &areaCodesJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan legacy menu item: %w", err)
		}

		var areaCodes []string
		if areaCodesJSON != "" {
			if err := json.Unmarshal([]byte(areaCodesJSON), &areaCodes); err != nil {
				log.Printf("legacy: item %s: bad area scope json, treating as global: %v", code, err)
				areaCodes = nil
			}
		}
		areaIDs := make([]types.ID, 0, len(areaCodes))
		for _, c := range areaCodes {
			areaIDs = append(areaIDs, types.NewDeterministicID("legacy-area", c))
		}

		items = append(items, menu.Item{
			ID:               types.NewDeterministicID("legacy-item", code),
			Name:             name,
			Category:         category,
			Description:      description,
			Price:            types.Money(price),
			IsAvailable:      isAvailable,
			AvailableAreaIDs: areaIDs,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return items, rows.Err()
}
