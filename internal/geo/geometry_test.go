package geo

import (
	"errors"
	"math"
	"testing"
)

var testBounds = BoundingBox{MinLat: -10, MaxLat: 50, MinLng: -10, MaxLng: 90}

func squareRing(minLat, minLng, maxLat, maxLng float64) Polygon {
	return Polygon{
		{Lat: minLat, Lng: minLng},
		{Lat: maxLat, Lng: minLng},
		{Lat: maxLat, Lng: maxLng},
		{Lat: minLat, Lng: maxLng},
		{Lat: minLat, Lng: minLng},
	}
}

func TestValidatePolygon(t *testing.T) {
	tests := []struct {
		name    string
		polygon Polygon
		wantErr error
	}{
		{
			name:    "valid square",
			polygon: squareRing(0, 0, 2, 2),
			wantErr: nil,
		},
		{
			name:    "too few vertices",
			polygon: Polygon{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 0}},
			wantErr: ErrTooFewVertices,
		},
		{
			name: "unclosed ring",
			polygon: Polygon{
				{Lat: 0, Lng: 0}, {Lat: 2, Lng: 0}, {Lat: 2, Lng: 2}, {Lat: 0, Lng: 2},
			},
			wantErr: ErrUnclosedRing,
		},
		{
			name: "vertex outside operating region",
			polygon: Polygon{
				{Lat: 0, Lng: 0}, {Lat: 80, Lng: 0}, {Lat: 2, Lng: 2}, {Lat: 0, Lng: 0},
			},
			wantErr: ErrOutOfBounds,
		},
		{
			name: "non-numeric coordinate",
			polygon: Polygon{
				{Lat: 0, Lng: 0}, {Lat: math.NaN(), Lng: 0}, {Lat: 2, Lng: 2}, {Lat: 0, Lng: 0},
			},
			wantErr: ErrNonNumericCoordinate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolygon(tt.polygon, testBounds)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Expected valid polygon, got error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPointInPolygon(t *testing.T) {
	square := squareRing(0, 0, 2, 2)

	tests := []struct {
		name  string
		point Coordinate
		want  bool
	}{
		{"center inside", Coordinate{Lat: 1, Lng: 1}, true},
		{"far outside", Coordinate{Lat: 5, Lng: 5}, false},
		{"outside left of edge", Coordinate{Lat: 1, Lng: -0.5}, false},
		{"just inside corner", Coordinate{Lat: 0.001, Lng: 0.001}, true},
		{"outside above", Coordinate{Lat: 2.5, Lng: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.point, square); got != tt.want {
				t.Errorf("Expected %v for %+v, got %v", tt.want, tt.point, got)
			}
		})
	}
}

func TestPointInPolygonConcaveRing(t *testing.T) {
	// L-shape: the notch at the top right is outside the ring.
	ring := Polygon{
		{Lat: 0, Lng: 0},
		{Lat: 4, Lng: 0},
		{Lat: 4, Lng: 2},
		{Lat: 2, Lng: 2},
		{Lat: 2, Lng: 4},
		{Lat: 0, Lng: 4},
		{Lat: 0, Lng: 0},
	}

	if !PointInPolygon(Coordinate{Lat: 1, Lng: 3}, ring) {
		t.Error("Expected point in the lower arm to be inside")
	}
	if !PointInPolygon(Coordinate{Lat: 3, Lng: 1}, ring) {
		t.Error("Expected point in the left arm to be inside")
	}
	if PointInPolygon(Coordinate{Lat: 3, Lng: 3}, ring) {
		t.Error("Expected point in the notch to be outside")
	}
}

func TestCentroid(t *testing.T) {
	square := squareRing(0, 0, 2, 2)
	c := Centroid(square)
	if c.Lat != 1 || c.Lng != 1 {
		t.Errorf("Expected centroid (1, 1), got (%v, %v)", c.Lat, c.Lng)
	}
}

func TestCentroidClosingVertexNotDoubleCounted(t *testing.T) {
	// If the duplicated closing point were included, the mean would drift
	// toward the first vertex.
	ring := Polygon{
		{Lat: 0, Lng: 0},
		{Lat: 3, Lng: 0},
		{Lat: 3, Lng: 3},
		{Lat: 0, Lng: 3},
		{Lat: 0, Lng: 0},
	}
	c := Centroid(ring)
	if c.Lat != 1.5 || c.Lng != 1.5 {
		t.Errorf("Expected centroid (1.5, 1.5), got (%v, %v)", c.Lat, c.Lng)
	}
}

func TestCentroidEmptyRingFallback(t *testing.T) {
	c := Centroid(Polygon{})
	if c != DefaultCenter {
		t.Errorf("Expected fallback center %+v, got %+v", DefaultCenter, c)
	}
}

func TestApproximateAreaKm2(t *testing.T) {
	// 2 degrees x 2 degrees -> 4 square degrees -> 4 * 111^2 km2
	square := squareRing(0, 0, 2, 2)
	got := ApproximateAreaKm2(square)
	want := 4 * 111.0 * 111.0
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("Expected area %v, got %v", want, got)
	}

	if ApproximateAreaKm2(Polygon{}) != 0 {
		t.Error("Expected zero area for empty ring")
	}
}

func TestHaversineKm(t *testing.T) {
	lahore := Coordinate{Lat: 31.5204, Lng: 74.3587}

	if d := HaversineKm(lahore, lahore); d != 0 {
		t.Errorf("Expected zero distance to self, got %v", d)
	}

	// One degree of latitude is roughly 111 km.
	a := Coordinate{Lat: 31, Lng: 74}
	b := Coordinate{Lat: 32, Lng: 74}
	d := HaversineKm(a, b)
	if d < 110 || d > 112 {
		t.Errorf("Expected ~111 km for one degree of latitude, got %v", d)
	}
}

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{MinLat: 23.5, MaxLat: 37.5, MinLng: 60.5, MaxLng: 77.5}

	tests := []struct {
		name  string
		point Coordinate
		want  bool
	}{
		{"inside", Coordinate{Lat: 31.52, Lng: 74.34}, true},
		{"null island", Coordinate{Lat: 0, Lng: 0}, false},
		{"on min edge", Coordinate{Lat: 23.5, Lng: 60.5}, true},
		{"north of box", Coordinate{Lat: 40, Lng: 70}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Contains(tt.point); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
