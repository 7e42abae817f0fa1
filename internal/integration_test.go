package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/zaiqahq/storefront/internal/coverage"
	"github.com/zaiqahq/storefront/internal/geo"
	"github.com/zaiqahq/storefront/internal/menu"
	"github.com/zaiqahq/storefront/internal/resolve"
)

var (
	testBounds = geo.BoundingBox{MinLat: 23.5, MaxLat: 37.5, MinLng: 60.5, MaxLng: 77.5}
	testVenue  = geo.Coordinate{Lat: 31.5204, Lng: 74.3587}
)

// newTestServer wires the admin and public surfaces the way main does, minus
// database, cache and event bus.
func newTestServer() (*httptest.Server, *coverage.Catalog, *menu.Catalog) {
	coverageCatalog := coverage.NewCatalog()
	menuCatalog := menu.NewCatalog()
	resolver := resolve.NewResolver(coverageCatalog, testBounds, testVenue)

	r := chi.NewRouter()
	r.Mount("/admin/coverage", coverage.NewHandler(coverageCatalog, nil, nil, nil, testBounds).Routes())
	r.Mount("/admin/menu", menu.NewHandler(menuCatalog, nil, nil).Routes())
	r.Mount("/delivery", resolve.NewAPI(resolver, menuCatalog, nil).Routes())

	return httptest.NewServer(r), coverageCatalog, menuCatalog
}

func postJSON(t *testing.T, url string, body any) map[string]any {
	t.Helper()
	return doJSON(t, http.MethodPost, url, body, http.StatusCreated)
}

func putJSON(t *testing.T, url string, body any) map[string]any {
	t.Helper()
	return doJSON(t, http.MethodPut, url, body, http.StatusOK)
}

func doJSON(t *testing.T, method, url string, body any, wantStatus int) map[string]any {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %v", method, url, wantStatus, resp.StatusCode, decoded)
	}
	return decoded
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected status %d, got %d: %v", url, wantStatus, resp.StatusCode, decoded)
	}
	return decoded
}

// TestStorefrontWorkflow walks the full admin-to-customer path: an admin
// draws a coverage area, attaches a delivery zone and publishes menu items;
// a customer then resolves their location and fetches the scoped menu.
func TestStorefrontWorkflow(t *testing.T) {
	srv, _, _ := newTestServer()
	defer srv.Close()

	// 1. Admin creates the Gulberg coverage area.
	area := postJSON(t, srv.URL+"/admin/coverage/areas", map[string]any{
		"name": "Gulberg",
		"city": "Lahore",
		"polygon": []map[string]float64{
			{"lat": 31.50, "lng": 74.32},
			{"lat": 31.50, "lng": 74.36},
			{"lat": 31.54, "lng": 74.36},
			{"lat": 31.54, "lng": 74.32},
			{"lat": 31.50, "lng": 74.32},
		},
	})
	areaID, _ := area["id"].(string)
	if areaID == "" {
		t.Fatalf("expected created area to carry an id: %v", area)
	}

	// 2. Admin attaches a flat-fee zone.
	zone := putJSON(t, srv.URL+"/admin/coverage/areas/"+areaID+"/zone", map[string]any{
		"fee_structure":    "flat",
		"delivery_fee":     99,
		"min_order_amount": 299,
		"estimated_time":   "30-45 min",
	})
	if zone["delivery_fee"].(float64) != 99 {
		t.Errorf("expected zone fee 99, got %v", zone["delivery_fee"])
	}

	// 3. Admin publishes menu items: one global, one scoped to Gulberg, one
	// switched off.
	postJSON(t, srv.URL+"/admin/menu/items", map[string]any{
		"name": "Chicken Tikka", "category": "BBQ", "price": 450,
	})
	postJSON(t, srv.URL+"/admin/menu/items", map[string]any{
		"name": "Seekh Kabab", "category": "BBQ", "price": 350,
		"available_area_ids": []string{areaID},
	})
	off := false
	postJSON(t, srv.URL+"/admin/menu/items", map[string]any{
		"name": "Namkeen Karahi", "category": "Karahi", "price": 1200,
		"is_available": &off,
	})

	// 4. Customer inside Gulberg resolves their location.
	result := getJSON(t, srv.URL+"/delivery/resolve?lat=31.52&lng=74.34", http.StatusOK)
	if result["in_service"] != true || result["reason"] != "resolved" {
		t.Fatalf("expected resolved, got %v", result)
	}
	if result["fee"].(float64) != 99 {
		t.Errorf("expected fee 99, got %v", result["fee"])
	}

	// 5. Customer fetches the menu for their location.
	menuResp := getJSON(t, srv.URL+"/delivery/menu?lat=31.52&lng=74.34", http.StatusOK)
	items, _ := menuResp["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 visible items, got %d: %v", len(items), items)
	}
	names := make(map[string]bool)
	for _, it := range items {
		names[it.(map[string]any)["name"].(string)] = true
	}
	if !names["Chicken Tikka"] || !names["Seekh Kabab"] {
		t.Errorf("unexpected menu items: %v", names)
	}

	// 6. Outside every polygon the customer is out of coverage and sees no
	// menu.
	result = getJSON(t, srv.URL+"/delivery/resolve?lat=33.68&lng=73.04", http.StatusOK)
	if result["reason"] != "no_coverage" {
		t.Errorf("expected no_coverage, got %v", result["reason"])
	}
	menuResp = getJSON(t, srv.URL+"/delivery/menu?lat=33.68&lng=73.04", http.StatusOK)
	if items, _ := menuResp["items"].([]any); len(items) != 0 {
		t.Errorf("expected empty menu out of coverage, got %v", items)
	}

	// 7. Admin pauses the area; resolution flips to no_coverage.
	doJSON(t, http.MethodPatch, srv.URL+"/admin/coverage/areas/"+areaID+"/active",
		map[string]any{"is_active": false}, http.StatusOK)
	result = getJSON(t, srv.URL+"/delivery/resolve?lat=31.52&lng=74.34", http.StatusOK)
	if result["reason"] != "no_coverage" {
		t.Errorf("expected no_coverage after pausing the area, got %v", result["reason"])
	}
}

// TestResolveValidation exercises the public query validation.
func TestResolveValidation(t *testing.T) {
	srv, _, _ := newTestServer()
	defer srv.Close()

	tests := []struct {
		name  string
		query string
	}{
		{"missing coordinates", ""},
		{"bad latitude", "lat=91&lng=74.34"},
		{"bad longitude", "lat=31.52&lng=abc"},
		{"negative subtotal", "lat=31.52&lng=74.34&subtotal=-5"},
		{"negative distance", "lat=31.52&lng=74.34&distance_km=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getJSON(t, srv.URL+"/delivery/resolve?"+tt.query, http.StatusBadRequest)
		})
	}
}

// TestAdminValidation exercises the admin invariants over HTTP.
func TestAdminValidation(t *testing.T) {
	srv, _, _ := newTestServer()
	defer srv.Close()

	// Unclosed polygon is rejected.
	doJSON(t, http.MethodPost, srv.URL+"/admin/coverage/areas", map[string]any{
		"name": "Broken", "city": "Lahore",
		"polygon": []map[string]float64{
			{"lat": 31.50, "lng": 74.32},
			{"lat": 31.50, "lng": 74.36},
			{"lat": 31.54, "lng": 74.36},
			{"lat": 31.54, "lng": 74.32},
		},
	}, http.StatusBadRequest)

	// Zone for a nonexistent area is rejected.
	doJSON(t, http.MethodPut, srv.URL+fmt.Sprintf("/admin/coverage/areas/%s/zone", "1b671a64-40d5-491e-99b0-da01ff1f3341"),
		map[string]any{"fee_structure": "flat", "delivery_fee": 99}, http.StatusNotFound)

	// Distance zone without a maximum range is rejected.
	area := postJSON(t, srv.URL+"/admin/coverage/areas", map[string]any{
		"name": "Gulberg", "city": "Lahore",
		"polygon": []map[string]float64{
			{"lat": 31.50, "lng": 74.32},
			{"lat": 31.50, "lng": 74.36},
			{"lat": 31.54, "lng": 74.36},
			{"lat": 31.54, "lng": 74.32},
			{"lat": 31.50, "lng": 74.32},
		},
	})
	areaID := area["id"].(string)
	doJSON(t, http.MethodPut, srv.URL+"/admin/coverage/areas/"+areaID+"/zone", map[string]any{
		"fee_structure": "distance", "base_fee": 50, "fee_per_km": 20,
	}, http.StatusBadRequest)
}
