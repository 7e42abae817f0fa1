package coverage

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zaiqahq/storefront/internal/geo"
	"github.com/zaiqahq/storefront/internal/shared/errors"
	"github.com/zaiqahq/storefront/internal/shared/events"
	"github.com/zaiqahq/storefront/internal/shared/metrics"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

// ResolutionCache invalidates cached resolution results after a coverage
// edit. Implemented by the resolution cache; nil when caching is disabled.
type ResolutionCache interface {
	Flush(ctx context.Context)
}

// Handler provides the administrative HTTP surface for areas and zones.
// Every request is validated against the data-model invariants before the
// catalog is touched; nothing malformed enters the in-memory state.
type Handler struct {
	catalog *Catalog
	repo    *Repository     // nil when running without a database
	bus     *events.Bus     // nil when the audit bus is disabled
	cache   ResolutionCache // nil when resolution caching is disabled
	bounds  geo.BoundingBox
}

// NewHandler creates a new coverage admin handler
func NewHandler(catalog *Catalog, repo *Repository, bus *events.Bus, cache ResolutionCache, bounds geo.BoundingBox) *Handler {
	return &Handler{catalog: catalog, repo: repo, bus: bus, cache: cache, bounds: bounds}
}

// Routes registers the coverage admin routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/areas", func(r chi.Router) {
		r.Get("/", h.ListAreas)
		r.Post("/", h.CreateArea)

		r.Route("/{areaID}", func(r chi.Router) {
			r.Get("/", h.GetArea)
			r.Put("/", h.UpdateArea)
			r.Delete("/", h.DeleteArea)
			r.Patch("/active", h.SetAreaActive)

			r.Route("/zone", func(r chi.Router) {
				r.Get("/", h.GetZone)
				r.Put("/", h.UpsertZone)
			})
		})
	})

	return r
}

// areaView decorates an Area with its zone and approximate size for the
// admin table.
type areaView struct {
	Area
	Zone          *DeliveryZone `json:"zone,omitempty"`
	ApproxAreaKm2 float64       `json:"approx_area_km2"`
}

func (h *Handler) view(a Area) areaView {
	v := areaView{Area: a, ApproxAreaKm2: geo.ApproximateAreaKm2(a.Polygon)}
	if z, ok := h.catalog.ZoneForArea(a.ID); ok {
		v.Zone = &z
	}
	return v
}

// ListAreas lists all areas with their zones
func (h *Handler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas := h.catalog.ListAreas()
	views := make([]areaView, 0, len(areas))
	for _, a := range areas {
		views = append(views, h.view(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"total": len(views),
	})
}

// GetArea gets an area by ID
func (h *Handler) GetArea(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "areaID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid area ID"))
		return
	}

	area, ok := h.catalog.GetArea(id)
	if !ok {
		writeError(w, errors.NotFound("area", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, h.view(area))
}

// CreateArea creates a new area from a drawn polygon
func (h *Handler) CreateArea(w http.ResponseWriter, r *http.Request) {
	var req CreateAreaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if problems := req.Validate(h.bounds); problems != nil {
		writeError(w, errors.Validation("validation failed", problems))
		return
	}

	now := time.Now().UTC()
	area := Area{
		ID:        types.NewID(),
		Name:      req.Name,
		City:      req.City,
		Polygon:   req.Polygon,
		Center:    geo.Centroid(req.Polygon),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.IsActive != nil {
		area.IsActive = *req.IsActive
	}

	if h.repo != nil {
		if err := h.repo.CreateArea(r.Context(), &area); err != nil {
			writeError(w, err)
			return
		}
	}
	h.catalog.UpsertArea(area)
	h.recordSize()
	h.invalidate(r)
	h.publish(r, "storefront.area.created", area)

	writeJSON(w, http.StatusCreated, h.view(area))
}

// UpdateArea updates an area's name, city or polygon. The cached center is
// recomputed whenever the polygon changes.
func (h *Handler) UpdateArea(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "areaID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid area ID"))
		return
	}

	area, ok := h.catalog.GetArea(id)
	if !ok {
		writeError(w, errors.NotFound("area", id.String()))
		return
	}

	var req UpdateAreaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if req.Name != nil {
		area.Name = *req.Name
	}
	if req.City != nil {
		area.City = *req.City
	}
	if req.Polygon != nil {
		if err := geo.ValidatePolygon(*req.Polygon, h.bounds); err != nil {
			writeError(w, errors.Validation("validation failed", map[string]string{
				"polygon": err.Error(),
			}))
			return
		}
		area.Polygon = *req.Polygon
		area.Center = geo.Centroid(*req.Polygon)
	}
	area.UpdatedAt = time.Now().UTC()

	if h.repo != nil {
		if err := h.repo.UpdateArea(r.Context(), &area); err != nil {
			writeError(w, err)
			return
		}
	}
	h.catalog.UpsertArea(area)
	h.invalidate(r)
	h.publish(r, "storefront.area.updated", area)

	writeJSON(w, http.StatusOK, h.view(area))
}

// SetAreaActive toggles coverage for an area without touching its polygon
func (h *Handler) SetAreaActive(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "areaID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid area ID"))
		return
	}

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, errors.BadRequest("is_active is required"))
		return
	}

	if h.repo != nil {
		if err := h.repo.SetAreaActive(r.Context(), id, *req.IsActive); err != nil {
			writeError(w, err)
			return
		}
	}
	if !h.catalog.SetAreaActive(id, *req.IsActive) {
		writeError(w, errors.NotFound("area", id.String()))
		return
	}
	h.invalidate(r)
	h.publish(r, "storefront.area.activated", map[string]any{
		"area_id":   id,
		"is_active": *req.IsActive,
	})

	area, _ := h.catalog.GetArea(id)
	writeJSON(w, http.StatusOK, h.view(area))
}

// DeleteArea deletes an area and its zone
func (h *Handler) DeleteArea(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "areaID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid area ID"))
		return
	}

	if h.repo != nil {
		if err := h.repo.DeleteArea(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
	}
	if !h.catalog.DeleteArea(id) {
		writeError(w, errors.NotFound("area", id.String()))
		return
	}
	h.recordSize()
	h.invalidate(r)
	h.publish(r, "storefront.area.deleted", map[string]any{"area_id": id})

	w.WriteHeader(http.StatusNoContent)
}

// GetZone gets the delivery zone for an area
func (h *Handler) GetZone(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "areaID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid area ID"))
		return
	}

	zone, ok := h.catalog.ZoneForArea(id)
	if !ok {
		writeError(w, errors.NotFound("delivery zone", id.String()))
		return
	}

	writeJSON(w, http.StatusOK, zone)
}

// UpsertZone creates or replaces the delivery zone for an area
func (h *Handler) UpsertZone(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "areaID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid area ID"))
		return
	}

	if _, ok := h.catalog.GetArea(id); !ok {
		writeError(w, errors.NotFound("area", id.String()))
		return
	}

	var req UpsertZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if problems := req.Validate(); problems != nil {
		writeError(w, errors.Validation("validation failed", problems))
		return
	}

	now := time.Now().UTC()
	zone := DeliveryZone{
		ID:                types.NewID(),
		AreaID:            id,
		FeeStructure:      req.FeeStructure,
		DeliveryFee:       req.DeliveryFee,
		BaseFee:           req.BaseFee,
		FeePerKm:          req.FeePerKm,
		MaxDistanceKm:     req.MaxDistanceKm,
		MinOrderAmount:    req.MinOrderAmount,
		EstimatedTime:     req.EstimatedTime,
		FreeDeliveryAbove: req.FreeDeliveryAbove,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
	}
	if existing, ok := h.catalog.ZoneForArea(id); ok {
		zone.ID = existing.ID
		zone.CreatedAt = existing.CreatedAt
	}

	if h.repo != nil {
		if err := h.repo.UpsertZone(r.Context(), &zone); err != nil {
			writeError(w, err)
			return
		}
	}
	h.catalog.UpsertZone(zone)
	h.recordSize()
	h.invalidate(r)
	h.publish(r, "storefront.zone.updated", zone)

	writeJSON(w, http.StatusOK, zone)
}

// publish sends an audit event, best effort. Admin mutations must not fail
// because the audit bus is down.
func (h *Handler) publish(r *http.Request, eventType string, data any) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(r.Context(), events.NewEvent(eventType, "coverage-admin", data)); err != nil {
		log.Printf("coverage: failed to publish %s: %v", eventType, err)
	}
}

// invalidate flushes cached resolution results so the next storefront query
// sees the edited coverage. Best effort; the catalog is already updated.
func (h *Handler) invalidate(r *http.Request) {
	if h.cache == nil {
		return
	}
	h.cache.Flush(r.Context())
}

func (h *Handler) recordSize() {
	areas, zones := h.catalog.Size()
	metrics.RecordCatalogSize(areas, zones)
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
