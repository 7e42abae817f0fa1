package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zone_resolutions_total",
			Help: "Total number of coordinate resolutions by outcome",
		},
		[]string{"reason"},
	)

	resolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zone_resolution_duration_seconds",
			Help:    "Coordinate resolution duration in seconds",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		},
	)

	polygonsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zone_invalid_polygons_skipped_total",
			Help: "Total number of stored polygons skipped during resolution because validation failed",
		},
	)

	feesComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_fees_computed_total",
			Help: "Total number of delivery fees computed",
		},
		[]string{"structure"},
	)

	catalogAreas = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coverage_catalog_areas",
			Help: "Number of areas in the coverage catalog",
		},
	)

	catalogZones = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coverage_catalog_zones",
			Help: "Number of configured delivery zones in the coverage catalog",
		},
	)

	resolveCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolve_cache_requests_total",
			Help: "Resolution cache lookups by result",
		},
		[]string{"result"},
	)

	legacyImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "legacy_import_rows_total",
			Help: "Rows imported from the legacy storefront database",
		},
		[]string{"table"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordResolution records a resolution outcome and its latency
func RecordResolution(reason string, duration time.Duration) {
	resolutionsTotal.WithLabelValues(reason).Inc()
	resolutionDuration.Observe(duration.Seconds())
}

// RecordPolygonSkipped records a stored polygon that failed validation
func RecordPolygonSkipped() {
	polygonsSkipped.Inc()
}

// RecordFeeComputed records a computed delivery fee
func RecordFeeComputed(structure string) {
	feesComputed.WithLabelValues(structure).Inc()
}

// RecordCatalogSize records the catalog gauges
func RecordCatalogSize(areas, zones int) {
	catalogAreas.Set(float64(areas))
	catalogZones.Set(float64(zones))
}

// RecordCacheHit records a resolution cache hit
func RecordCacheHit() {
	resolveCacheHits.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a resolution cache miss
func RecordCacheMiss() {
	resolveCacheHits.WithLabelValues("miss").Inc()
}

// RecordLegacyImport records rows imported from the legacy database
func RecordLegacyImport(table string, rows int) {
	legacyImports.WithLabelValues(table).Add(float64(rows))
}
