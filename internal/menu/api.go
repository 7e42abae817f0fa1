package menu

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zaiqahq/storefront/internal/shared/errors"
	"github.com/zaiqahq/storefront/internal/shared/events"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

// Handler provides the administrative HTTP surface for menu items
type Handler struct {
	catalog *Catalog
	repo    *Repository // nil when running without a database
	bus     *events.Bus // nil when the audit bus is disabled
}

// NewHandler creates a new menu admin handler
func NewHandler(catalog *Catalog, repo *Repository, bus *events.Bus) *Handler {
	return &Handler{catalog: catalog, repo: repo, bus: bus}
}

// Routes registers the menu admin routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.CreateItem)

		r.Route("/{itemID}", func(r chi.Router) {
			r.Get("/", h.GetItem)
			r.Put("/", h.UpdateItem)
			r.Delete("/", h.DeleteItem)
		})
	})

	return r
}

// ListItems lists all menu items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"total": len(items),
	})
}

// GetItem gets a menu item by ID
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid item ID"))
		return
	}

	item, ok := h.catalog.Get(id)
	if !ok {
		writeError(w, errors.NotFound("menu item", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// CreateItem creates a new menu item
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if problems := req.Validate(); problems != nil {
		writeError(w, errors.Validation("validation failed", problems))
		return
	}

	now := time.Now().UTC()
	item := Item{
		ID:               types.NewID(),
		Name:             req.Name,
		Category:         req.Category,
		Description:      req.Description,
		Price:            req.Price,
		IsAvailable:      true,
		AvailableAreaIDs: req.AvailableAreaIDs,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if h.repo != nil {
		if err := h.repo.Upsert(r.Context(), &item); err != nil {
			writeError(w, err)
			return
		}
	}
	h.catalog.Upsert(item)
	h.publish(r, "storefront.menu.created", item)

	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem updates a menu item
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid item ID"))
		return
	}

	item, ok := h.catalog.Get(id)
	if !ok {
		writeError(w, errors.NotFound("menu item", id.String()))
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			writeError(w, errors.Validation("validation failed", map[string]string{
				"price": "must not be negative",
			}))
			return
		}
		item.Price = *req.Price
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}
	if req.AvailableAreaIDs != nil {
		item.AvailableAreaIDs = *req.AvailableAreaIDs
	}
	item.UpdatedAt = time.Now().UTC()

	if h.repo != nil {
		if err := h.repo.Upsert(r.Context(), &item); err != nil {
			writeError(w, err)
			return
		}
	}
	h.catalog.Upsert(item)
	h.publish(r, "storefront.menu.updated", item)

	writeJSON(w, http.StatusOK, item)
}

// DeleteItem deletes a menu item
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid item ID"))
		return
	}

	if h.repo != nil {
		if err := h.repo.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
	}
	if !h.catalog.Delete(id) {
		writeError(w, errors.NotFound("menu item", id.String()))
		return
	}
	h.publish(r, "storefront.menu.deleted", map[string]any{"item_id": id})

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(r *http.Request, eventType string, data any) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(r.Context(), events.NewEvent(eventType, "menu-admin", data)); err != nil {
		log.Printf("menu: failed to publish %s: %v", eventType, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
