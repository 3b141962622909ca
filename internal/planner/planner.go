// Package planner computes the shortest and safest walking routes for a
// trip. The safest route is found by asking the directions engine to avoid
// progressively smaller sets of the riskiest polygons crossing the baseline
// route, and every failure mode degrades to a usable result plus a warning
// rather than an error.
package planner

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/saferoute-nyc/saferoute/internal/directions"
	"github.com/saferoute-nyc/saferoute/internal/geo"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/snapshot"
	"github.com/saferoute-nyc/saferoute/internal/telemetry"
)

// maxAvoidAreaDeg2 caps the area of any single avoidance polygon. The
// upstream engine rejects avoid_polygons requests much larger than this.
const maxAvoidAreaDeg2 = 0.1

// avoidTiers are the avoidance attempt sizes: avoid the three riskiest
// polygons first, then just the riskiest one.
var avoidTiers = []int{3, 1}

// LatLng is a coordinate pair in the order clients send it.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// RouteSummary is one computed route in response shape.
type RouteSummary struct {
	DistanceMeters   float64           `json:"distance_m"`
	DurationSeconds  float64           `json:"duration_s"`
	Geometry         *geojson.Geometry `json:"geometry"`
	RiskAreasAvoided int               `json:"risk_areas_avoided"`
}

// Result is the outcome of one route computation. Both routes are always
// present; Warnings explains any degradation that happened along the way.
type Result struct {
	Shortest     RouteSummary       `json:"shortest"`
	Safest       RouteSummary       `json:"safest"`
	RiskPolygons []*geojson.Feature `json:"risk_polygons_used"`
	Warnings     []string           `json:"warnings"`
}

// DirectionsAPI is the subset of the directions client the planner uses.
type DirectionsAPI interface {
	Directions(ctx context.Context, start, end orb.Point, avoid *directions.Avoidance) (*directions.Route, error)
	Configured() bool
}

// PolygonSource supplies the risk polygons relevant to a trip.
type PolygonSource interface {
	Query(start, end orb.Point) []snapshot.Polygon
}

// Planner computes route pairs.
type Planner struct {
	directions DirectionsAPI
	store      PolygonSource
	log        logger.Logger
	metrics    *telemetry.Provider
}

// New builds a planner. metrics must be non-nil; use telemetry.NewNop to
// discard measurements.
func New(d DirectionsAPI, store PolygonSource, log logger.Logger, metrics *telemetry.Provider) *Planner {
	return &Planner{directions: d, store: store, log: log, metrics: metrics}
}

// ComputeRoutes returns the shortest and safest routes between start and
// end. It never fails: with no credentials, no risk data or a dead engine it
// still returns renderable geometry, recording what was degraded in
// Result.Warnings.
func (p *Planner) ComputeRoutes(ctx context.Context, start, end LatLng) *Result {
	began := time.Now()
	s, e := start.point(), end.point()

	used := p.store.Query(s, e)
	warnings := make([]string, 0)

	shortest, warn := p.baseline(ctx, s, e)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	safest, avoidWarnings := p.avoidance(ctx, s, e, shortest, used)
	warnings = append(warnings, avoidWarnings...)

	features := make([]*geojson.Feature, 0, len(used))
	for _, poly := range used {
		features = append(features, poly.Feature)
	}
	result := &Result{
		Shortest:     summarize(shortest, 0),
		Safest:       summarize(safest, len(used)),
		RiskPolygons: features,
		Warnings:     warnings,
	}

	p.metrics.RecordRoute(time.Since(began), len(used))
	return result
}

// baseline fetches the no-avoidance route, degrading to the straight-line
// fallback when the engine is unconfigured (silently) or failing (with a
// warning).
func (p *Planner) baseline(ctx context.Context, start, end orb.Point) (*directions.Route, string) {
	route, err := p.directions.Directions(ctx, start, end, nil)
	switch {
	case err == nil:
		return route, ""
	case errors.Is(err, directions.ErrNoAPIKey):
		p.log.Debug("directions engine not configured, using straight-line route")
		p.metrics.RecordFallback(telemetry.ReasonUnconfigured)
		return directions.Fallback(start, end), ""
	default:
		p.log.Warn("baseline route failed, using straight-line route", logger.Error(err))
		p.metrics.RecordRoutingError(telemetry.StageBaseline)
		p.metrics.RecordFallback(telemetry.ReasonEngineError)
		return directions.Fallback(start, end), "routing engine unavailable; using direct path"
	}
}

// avoidance walks the tier ladder looking for a route that actually differs
// from the baseline. It returns the baseline itself, with an explanatory
// warning, when no alternative can be produced.
func (p *Planner) avoidance(ctx context.Context, start, end orb.Point, shortest *directions.Route, used []snapshot.Polygon) (*directions.Route, []string) {
	if len(used) == 0 {
		return shortest, nil
	}

	intersecting := make([]snapshot.Polygon, 0, len(used))
	for _, poly := range used {
		if geo.LineIntersectsPolygon(shortest.Geometry, poly.Geom) {
			intersecting = append(intersecting, poly)
		}
	}
	if len(intersecting) == 0 {
		return shortest, []string{"no risk zones on route"}
	}

	if !p.directions.Configured() {
		// Every avoidance attempt would yield the same straight-line
		// fallback, so there is no alternative to offer.
		return shortest, []string{"no alternative route exists"}
	}

	sort.SliceStable(intersecting, func(i, j int) bool {
		return intersecting[i].RiskScore > intersecting[j].RiskScore
	})

	var attempted, errored int
	for _, size := range avoidTiers {
		if len(intersecting) < size {
			continue
		}
		avoid := combineAvoidance(intersecting[:size])
		if avoid == nil {
			p.log.Debug("avoidance tier skipped, polygons exceed the area limit",
				logger.Int("tier", size))
			continue
		}

		attempted++
		route, err := p.directions.Directions(ctx, start, end, &directions.Avoidance{Geometry: avoid})
		if err != nil {
			errored++
			p.log.Warn("avoidance tier failed",
				logger.Int("tier", size), logger.Error(err))
			p.metrics.RecordRoutingError(telemetry.StageAvoidance)
			continue
		}
		if route.Geometry.Equal(shortest.Geometry) {
			p.log.Debug("avoidance tier returned the baseline route",
				logger.Int("tier", size))
			continue
		}
		return route, nil
	}

	if attempted > 0 && errored == attempted {
		return shortest, []string{"all paths blocked by risk zones"}
	}
	return shortest, []string{"no alternative route exists"}
}

// combineAvoidance packs the tier's polygons into a single avoidance
// geometry, dropping any polygon too large for the engine to accept. It
// returns nil when nothing survives.
func combineAvoidance(polygons []snapshot.Polygon) orb.Geometry {
	kept := make([]orb.Polygon, 0, len(polygons))
	for _, p := range polygons {
		if math.Abs(planar.Area(p.Geom)) > maxAvoidAreaDeg2 {
			continue
		}
		kept = append(kept, p.Geom)
	}

	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return orb.MultiPolygon(kept)
	}
}

func summarize(route *directions.Route, avoided int) RouteSummary {
	return RouteSummary{
		DistanceMeters:   route.DistanceMeters,
		DurationSeconds:  route.DurationSeconds,
		Geometry:         geojson.NewGeometry(route.Geometry),
		RiskAreasAvoided: avoided,
	}
}
