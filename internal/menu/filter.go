package menu

import "github.com/zaiqahq/storefront/internal/shared/types"

// FilterForArea returns the items visible in the given area: available items
// that are either globally scoped or explicitly scoped to the area. The
// input order is preserved; category grouping and sorting are presentation
// concerns handled downstream.
func FilterForArea(items []Item, areaID types.ID) []Item {
	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if item.visibleIn(areaID) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
