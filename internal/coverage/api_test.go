package coverage

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type flushCounter struct {
	flushes int
}

func (f *flushCounter) Flush(ctx context.Context) {
	f.flushes++
}

func doReq(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestMutationsFlushResolutionCache(t *testing.T) {
	fc := &flushCounter{}
	h := NewHandler(NewCatalog(), nil, nil, fc, testBounds)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp := doReq(t, http.MethodPost, srv.URL+"/areas", map[string]any{
		"name":    "Gulberg",
		"city":    "Lahore",
		"polygon": testRing(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if fc.flushes != 1 {
		t.Fatalf("expected 1 flush after create, got %d", fc.flushes)
	}

	resp = doReq(t, http.MethodGet, srv.URL+"/areas", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if fc.flushes != 1 {
		t.Errorf("listing must not flush, got %d", fc.flushes)
	}

	resp = doReq(t, http.MethodPut, srv.URL+"/areas/"+created.ID, map[string]any{"name": "Gulberg III"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if fc.flushes != 2 {
		t.Errorf("expected 2 flushes after update, got %d", fc.flushes)
	}

	resp = doReq(t, http.MethodPut, srv.URL+"/areas/"+created.ID+"/zone", map[string]any{
		"fee_structure": "flat",
		"delivery_fee":  99,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if fc.flushes != 3 {
		t.Errorf("expected 3 flushes after zone upsert, got %d", fc.flushes)
	}

	resp = doReq(t, http.MethodPatch, srv.URL+"/areas/"+created.ID+"/active", map[string]any{"is_active": false})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if fc.flushes != 4 {
		t.Errorf("expected 4 flushes after toggle, got %d", fc.flushes)
	}

	resp = doReq(t, http.MethodDelete, srv.URL+"/areas/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if fc.flushes != 5 {
		t.Errorf("expected 5 flushes after delete, got %d", fc.flushes)
	}
}
