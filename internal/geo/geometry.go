package geo

import (
	"errors"
	"fmt"
	"math"
)

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is a single closed ring: at least 4 points with the first and last
// equal. Holes and multi-ring shapes are not supported; coverage areas are
// drawn as simple rings. Self-intersection is not validated.
type Polygon []Coordinate

// BoundingBox is the operating region extent. Coordinates outside it are
// rejected before any polygon is consulted.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether the coordinate lies inside the box (inclusive).
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

const (
	// kmPerDegree is the planar degrees-to-km conversion used for the
	// approximate area calculation. Valid only near the operating latitude;
	// this is not a geodesic computation.
	kmPerDegree = 111.0

	earthRadiusKm = 6371.0
)

// DefaultCenter is returned by Centroid for a degenerate (empty) ring so the
// map UI always has something to point at.
// TODO: return an error instead once the admin client stops requesting a
// center for areas that have no polygon yet.
var DefaultCenter = Coordinate{Lat: 31.5204, Lng: 74.3587} // Lahore

// Polygon validation failures. Callers match with errors.Is.
var (
	ErrTooFewVertices       = errors.New("polygon has fewer than 4 ring points")
	ErrUnclosedRing         = errors.New("polygon ring is not closed")
	ErrOutOfBounds          = errors.New("polygon vertex outside operating region")
	ErrNonNumericCoordinate = errors.New("polygon vertex is not a finite number")
)

// ValidatePolygon checks the ring invariants: at least 4 points (3 distinct
// vertices), closed (first equals last), every vertex finite and inside the
// operating bounding box. It is the only geometry function that can fail;
// untrusted polygons must pass it before PointInPolygon or Centroid are
// trusted.
func ValidatePolygon(p Polygon, bounds BoundingBox) error {
	if len(p) < 4 {
		return fmt.Errorf("%w: got %d", ErrTooFewVertices, len(p))
	}
	for i, v := range p {
		if math.IsNaN(v.Lat) || math.IsInf(v.Lat, 0) || math.IsNaN(v.Lng) || math.IsInf(v.Lng, 0) {
			return fmt.Errorf("%w: vertex %d", ErrNonNumericCoordinate, i)
		}
		if !bounds.Contains(v) {
			return fmt.Errorf("%w: vertex %d (%.6f, %.6f)", ErrOutOfBounds, i, v.Lat, v.Lng)
		}
	}
	if p[0] != p[len(p)-1] {
		return ErrUnclosedRing
	}
	return nil
}

// PointInPolygon tests ring membership with the even-odd ray-casting rule: a
// horizontal ray from the point toggles an inside flag each time it crosses
// an edge. A point exactly on an edge or vertex gets an implementation-
// defined answer; that matches standard ray casting and callers must not
// rely on boundary behavior.
func PointInPolygon(pt Coordinate, p Polygon) bool {
	n := len(p)
	if n < 4 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, xi := p[i].Lat, p[i].Lng
		yj, xj := p[j].Lat, p[j].Lng
		if ((yi > pt.Lat) != (yj > pt.Lat)) &&
			pt.Lng < (xj-xi)*(pt.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Centroid returns the arithmetic mean of the ring's distinct vertices (the
// duplicated closing point is not double-counted). This is the vertex-average
// approximation, not the area-weighted centroid; stored area centers were
// computed this way and displayed centers must keep matching them. An empty
// ring yields DefaultCenter.
func Centroid(p Polygon) Coordinate {
	n := len(p)
	if n == 0 {
		return DefaultCenter
	}
	if n > 1 && p[0] == p[n-1] {
		n--
	}
	var sumLat, sumLng float64
	for _, v := range p[:n] {
		sumLat += v.Lat
		sumLng += v.Lng
	}
	return Coordinate{Lat: sumLat / float64(n), Lng: sumLng / float64(n)}
}

// ApproximateAreaKm2 computes the planar shoelace area of the ring and scales
// it to km2 with the fixed kmPerDegree factor. Good enough for admin sanity
// checks near the operating latitude; not a geodesic area.
func ApproximateAreaKm2(p Polygon) float64 {
	n := len(p)
	if n < 4 {
		return 0
	}
	var sum float64
	for i := 0; i < n-1; i++ {
		sum += p[i].Lng*p[i+1].Lat - p[i+1].Lng*p[i].Lat
	}
	return math.Abs(sum) / 2 * kmPerDegree * kmPerDegree
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(a, b Coordinate) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180.0 }
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
