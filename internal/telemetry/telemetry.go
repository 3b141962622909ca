// Package telemetry exports the Prometheus metrics for the SafeRoute API.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for the routing metrics.
const (
	StageBaseline  = "baseline"
	StageAvoidance = "avoidance"

	ReasonUnconfigured = "unconfigured"
	ReasonEngineError  = "engine_error"
)

// Metrics holds all SafeRoute Prometheus metrics.
type Metrics struct {
	// Route planning metrics
	RoutesComputed  prometheus.Counter
	RouteDuration   prometheus.Histogram
	RoutingErrors   *prometheus.CounterVec
	FallbackRoutes  *prometheus.CounterVec
	PolygonsQueried prometheus.Histogram

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Geocoding metrics
	GeocodeCacheHits   prometheus.Counter
	GeocodeCacheMisses prometheus.Counter
	GeocodeErrors      prometheus.Counter

	// Alert metrics
	PanicAlerts *prometheus.CounterVec
}

// Provider wraps the metrics and their HTTP exposition.
type Provider struct {
	Metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewProvider initializes the metrics on the default Prometheus registry.
func NewProvider() *Provider {
	return &Provider{
		Metrics:  newMetrics(prometheus.DefaultRegisterer),
		gatherer: prometheus.DefaultGatherer,
	}
}

// NewNop returns a provider backed by a private registry, for tests and
// callers that do not expose metrics.
func NewNop() *Provider {
	reg := prometheus.NewRegistry()
	return &Provider{
		Metrics:  newMetrics(reg),
		gatherer: reg,
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RoutesComputed: factory.NewCounter(prometheus.CounterOpts{
			Name: "saferoute_routes_computed_total",
			Help: "Total safe-route computations",
		}),
		RouteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "saferoute_route_duration_seconds",
			Help:    "Time to compute the shortest and safest routes",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RoutingErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saferoute_routing_errors_total",
			Help: "Directions engine failures by planning stage",
		}, []string{"stage"}),
		FallbackRoutes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saferoute_fallback_routes_total",
			Help: "Straight-line fallback routes by reason",
		}, []string{"reason"}),
		PolygonsQueried: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "saferoute_polygons_queried",
			Help:    "Risk polygons returned per route query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saferoute_http_requests_total",
			Help: "HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saferoute_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),
		GeocodeCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "saferoute_geocode_cache_hits_total",
			Help: "Geocoding responses served from cache",
		}),
		GeocodeCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "saferoute_geocode_cache_misses_total",
			Help: "Geocoding requests that reached the upstream geocoder",
		}),
		GeocodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "saferoute_geocode_errors_total",
			Help: "Failed upstream geocoding requests",
		}),
		PanicAlerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saferoute_panic_alerts_total",
			Help: "Panic alerts by delivery outcome",
		}, []string{"outcome"}),
	}
}

// RecordRoute records one completed route computation.
func (p *Provider) RecordRoute(duration time.Duration, polygonsQueried int) {
	p.Metrics.RoutesComputed.Inc()
	p.Metrics.RouteDuration.Observe(duration.Seconds())
	p.Metrics.PolygonsQueried.Observe(float64(polygonsQueried))
}

// RecordRoutingError records a directions engine failure at a planning stage.
func (p *Provider) RecordRoutingError(stage string) {
	p.Metrics.RoutingErrors.WithLabelValues(stage).Inc()
}

// RecordFallback records a straight-line fallback route.
func (p *Provider) RecordFallback(reason string) {
	p.Metrics.FallbackRoutes.WithLabelValues(reason).Inc()
}

// RecordRequest records one handled HTTP request.
func (p *Provider) RecordRequest(method, path string, status int, duration time.Duration) {
	p.Metrics.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.Metrics.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeocodeCache records a cache hit or miss for a geocoding lookup.
func (p *Provider) RecordGeocodeCache(hit bool) {
	if hit {
		p.Metrics.GeocodeCacheHits.Inc()
		return
	}
	p.Metrics.GeocodeCacheMisses.Inc()
}

// RecordGeocodeError records a failed upstream geocoding request.
func (p *Provider) RecordGeocodeError() {
	p.Metrics.GeocodeErrors.Inc()
}

// RecordPanicAlert records a panic alert delivery outcome.
func (p *Provider) RecordPanicAlert(outcome string) {
	p.Metrics.PanicAlerts.WithLabelValues(outcome).Inc()
}
