package resolve

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zaiqahq/storefront/internal/geo"
	"github.com/zaiqahq/storefront/internal/menu"
	"github.com/zaiqahq/storefront/internal/shared/errors"
	"github.com/zaiqahq/storefront/internal/shared/types"
)

// API exposes the public storefront endpoints: availability resolution and
// the per-area menu. Caching lives here, in the calling layer, never inside
// the resolver.
type API struct {
	resolver *Resolver
	menus    *menu.Catalog
	cache    *Cache // nil when caching is disabled
}

// NewAPI creates the public resolve API
func NewAPI(resolver *Resolver, menus *menu.Catalog, cache *Cache) *API {
	return &API{resolver: resolver, menus: menus, cache: cache}
}

// Routes registers the public delivery routes
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/resolve", a.ResolveLocation)
	r.Get("/menu", a.MenuForLocation)
	return r
}

// ResolveLocation answers whether the storefront delivers to a coordinate
// and under what terms.
//
//	GET /resolve?lat=31.52&lng=74.34[&subtotal=450][&distance_km=3.2]
func (a *API) ResolveLocation(w http.ResponseWriter, r *http.Request) {
	coord, opts, appErr := parseQuery(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	key := Key(coord, opts)
	if a.cache != nil {
		if result, ok := a.cache.Get(r.Context(), key); ok {
			writeJSON(w, http.StatusOK, result)
			return
		}
	}

	result := a.resolver.Resolve(coord, opts)

	if a.cache != nil {
		a.cache.Set(r.Context(), key, result)
	}
	writeJSON(w, http.StatusOK, result)
}

// menuResponse pairs the filtered items with the resolution that scoped
// them, so the storefront can render availability messaging alongside the
// catalog.
type menuResponse struct {
	Resolution Result      `json:"resolution"`
	Items      []menu.Item `json:"items"`
}

// MenuForLocation returns the menu visible at a coordinate.
//
//	GET /menu?lat=31.52&lng=74.34
func (a *API) MenuForLocation(w http.ResponseWriter, r *http.Request) {
	coord, opts, appErr := parseQuery(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	result := a.resolver.Resolve(coord, opts)

	resp := menuResponse{Resolution: result, Items: []menu.Item{}}
	if result.Area != nil {
		resp.Items = menu.FilterForArea(a.menus.List(), result.Area.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseQuery(r *http.Request) (geo.Coordinate, Options, *errors.AppError) {
	q := r.URL.Query()

	latStr := q.Get("lat")
	lngStr := q.Get("lng")
	if latStr == "" || lngStr == "" {
		return geo.Coordinate{}, Options{}, errors.BadRequest("lat and lng are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return geo.Coordinate{}, Options{}, errors.BadRequest("lat must be a valid latitude")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || lng < -180 || lng > 180 {
		return geo.Coordinate{}, Options{}, errors.BadRequest("lng must be a valid longitude")
	}

	var opts Options
	if s := q.Get("subtotal"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			return geo.Coordinate{}, Options{}, errors.BadRequest("subtotal must be a non-negative integer")
		}
		m := types.Money(v)
		opts.OrderSubtotal = &m
	}
	if s := q.Get("distance_km"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return geo.Coordinate{}, Options{}, errors.BadRequest("distance_km must be a non-negative number")
		}
		opts.DistanceKm = &v
	}

	return geo.Coordinate{Lat: lat, Lng: lng}, opts, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"error":   appErr.Message,
		"code":    appErr.Code,
		"details": appErr.Details,
	})
}
