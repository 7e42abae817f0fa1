package menu

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zaiqahq/storefront/internal/shared/errors"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

// Repository provides database operations for menu items
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new menu repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadAll reads every menu item in catalog order
func (r *Repository) LoadAll(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, category, description, price, is_available,
			available_area_ids, created_at, updated_at
		FROM menu_items
		ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load menu items")
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item     Item
			price    int64
			areasRaw []byte
		)
		err := rows.Scan(
			&item.ID, &item.Name, &item.Category, &item.Description, &price,
			&item.IsAvailable, &areasRaw, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan menu item")
		}
		item.Price = types.Money(price)
		if len(areasRaw) > 0 {
			if err := json.Unmarshal(areasRaw, &item.AvailableAreaIDs); err != nil {
				return nil, errors.Wrap(err, "failed to decode menu item area scope")
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// Upsert creates or replaces a menu item
func (r *Repository) Upsert(ctx context.Context, item *Item) error {
	areas, err := json.Marshal(item.AvailableAreaIDs)
	if err != nil {
		return errors.Wrap(err, "failed to encode menu item area scope")
	}

	query := `
		INSERT INTO menu_items (
			id, name, category, description, price, is_available, available_area_ids
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			is_available = EXCLUDED.is_available,
			available_area_ids = EXCLUDED.available_area_ids,
			updated_at = NOW()`

	_, err = r.pool.Exec(ctx, query,
		item.ID, item.Name, item.Category, item.Description,
		int64(item.Price), item.IsAvailable, areas,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("menu item with this id already exists")
		}
		return errors.Wrap(err, "failed to upsert menu item")
	}

	return nil
}

// Delete removes a menu item
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete menu item")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("menu item", id.String())
	}
	return nil
}
