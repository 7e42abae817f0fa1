package menu

import (
	"time"

	"github.com/zaiqahq/storefront/internal/shared/types"
)

// Item is a menu entry. AvailableAreaIDs scopes visibility: an empty list
// means the item is offered in every deliverable area.
type Item struct {
	ID          types.ID    `json:"id"`
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Description string      `json:"description,omitempty"`
	Price       types.Money `json:"price"`
	IsAvailable bool        `json:"is_available"`

	AvailableAreaIDs []types.ID `json:"available_area_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// visibleIn reports whether the item should appear for the given area.
func (i Item) visibleIn(areaID types.ID) bool {
	if !i.IsAvailable {
		return false
	}
	if len(i.AvailableAreaIDs) == 0 {
		return true
	}
	for _, id := range i.AvailableAreaIDs {
		if id == areaID {
			return true
		}
	}
	return false
}

// CreateItemRequest is the admin request to create a menu item
type CreateItemRequest struct {
	Name             string      `json:"name"`
	Category         string      `json:"category"`
	Description      string      `json:"description"`
	Price            types.Money `json:"price"`
	IsAvailable      *bool       `json:"is_available,omitempty"`
	AvailableAreaIDs []types.ID  `json:"available_area_ids,omitempty"`
}

// UpdateItemRequest is the admin request to update a menu item
type UpdateItemRequest struct {
	Name             *string      `json:"name,omitempty"`
	Category         *string      `json:"category,omitempty"`
	Description      *string      `json:"description,omitempty"`
	Price            *types.Money `json:"price,omitempty"`
	IsAvailable      *bool        `json:"is_available,omitempty"`
	AvailableAreaIDs *[]types.ID  `json:"available_area_ids,omitempty"`
}

// Validate checks the create request invariants.
func (r CreateItemRequest) Validate() map[string]string {
	problems := make(map[string]string)
	if r.Name == "" {
		problems["name"] = "name is required"
	}
	if r.Price < 0 {
		problems["price"] = "must not be negative"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}
