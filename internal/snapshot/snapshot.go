// Package snapshot loads and serves the generated risk artifacts: the
// risk-polygon collection consumed by route planning and the crime-heatmap
// point collection served to clients. A Store is populated once at startup
// and is read-only afterwards, so it is safe for concurrent request
// handlers; the generator replaces the files on disk with an atomic rename
// and a restart or scheduled reload picks them up.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/saferoute-nyc/saferoute/internal/config"
	"github.com/saferoute-nyc/saferoute/internal/geo"
	"github.com/saferoute-nyc/saferoute/internal/incident"
	"github.com/saferoute-nyc/saferoute/internal/logger"
)

const (
	// queryPad widens the start/end bounding box, in degrees (~2km).
	queryPad = 0.02
	// lineProximity keeps polygons within this distance of the start-end
	// segment (~500m).
	lineProximity = 0.005
	// nearestLimit caps the fallback result when nothing sits near the query.
	nearestLimit = 20

	// Per-point buffer parameters used when no polygon snapshot exists yet.
	fallbackBufferBase   = 0.001
	fallbackBufferWeight = 0.001
	fallbackPointWeight  = 0.5

	circleSegments = 32
	riskAreaScale  = 100000
)

// Collection is the on-disk shape shared by both snapshot artifacts.
type Collection struct {
	Type     string                 `json:"type"`
	Features []*geojson.Feature     `json:"features"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Polygon is one loaded risk polygon with its decoded geometry.
type Polygon struct {
	Feature   *geojson.Feature
	Geom      orb.Polygon
	RiskScore float64
}

// Store holds the loaded snapshots.
type Store struct {
	log      logger.Logger
	polygons []Polygon
	meta     map[string]interface{}
	heatmap  Collection
}

// Load reads the snapshot files named by cfg. Every failure degrades to the
// next source in the chain rather than aborting: a missing polygon snapshot
// falls back to buffering the heatmap points, a missing heatmap falls back
// to filtering the raw dataset, and a missing dataset falls back to a small
// built-in sample.
func Load(cfg config.DataConfig, log logger.Logger) *Store {
	s := &Store{log: log}
	s.heatmap = loadHeatmap(cfg, log)
	s.polygons, s.meta = loadPolygons(cfg.PolygonsPath, s.heatmap.Features, log)
	return s
}

// Polygons returns every loaded risk polygon.
func (s *Store) Polygons() []Polygon {
	return s.polygons
}

// PolygonCount reports how many risk polygons are loaded.
func (s *Store) PolygonCount() int {
	return len(s.polygons)
}

// Metadata returns the generation metadata of the polygon snapshot, if any.
func (s *Store) Metadata() map[string]interface{} {
	return s.meta
}

// Heatmap returns the heatmap collection exactly as loaded.
func (s *Store) Heatmap() Collection {
	return s.heatmap
}

// Query returns the risk polygons relevant to a trip between start and end:
// polygons intersecting the padded bounding box around the two points, or
// passing within lineProximity of the straight segment between them. When
// nothing is nearby but polygons exist elsewhere, the nearestLimit closest
// polygons are returned so route planning still has candidates to reason
// about. An empty store yields an empty result.
func (s *Store) Query(start, end orb.Point) []Polygon {
	if len(s.polygons) == 0 {
		return nil
	}

	box := geo.SegmentBound(start, end).Pad(queryPad)

	var matched []Polygon
	for _, p := range s.polygons {
		if geo.PolygonIntersectsBound(p.Geom, box) ||
			geo.SegmentPolygonDistance(start, end, p.Geom) < lineProximity {
			matched = append(matched, p)
		}
	}
	if len(matched) > 0 {
		return matched
	}

	type candidate struct {
		polygon  Polygon
		distance float64
	}
	candidates := make([]candidate, 0, len(s.polygons))
	for _, p := range s.polygons {
		candidates = append(candidates, candidate{
			polygon:  p,
			distance: geo.SegmentPolygonDistance(start, end, p.Geom),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	limit := nearestLimit
	if limit > len(candidates) {
		limit = len(candidates)
	}
	nearest := make([]Polygon, 0, limit)
	for _, c := range candidates[:limit] {
		nearest = append(nearest, c.polygon)
	}
	s.log.Debug("no risk polygons near query, returning nearest",
		logger.Int("returned", len(nearest)))
	return nearest
}

// HeatmapFeatures converts filtered incidents into the point features
// stored in the heatmap snapshot.
func HeatmapFeatures(incidents []incident.Incident) []*geojson.Feature {
	features := make([]*geojson.Feature, 0, len(incidents))
	for _, inc := range incidents {
		f := geojson.NewFeature(orb.Point{inc.Lon, inc.Lat})
		f.Properties["hour"] = inc.Hour
		f.Properties["category"] = inc.Category
		f.Properties["weight"] = inc.Weight
		if inc.Date != "" {
			f.Properties["date"] = inc.Date
		}
		features = append(features, f)
	}
	return features
}

func loadHeatmap(cfg config.DataConfig, log logger.Logger) Collection {
	coll, err := readCollection(cfg.HeatmapPath)
	if err == nil {
		log.Info("loaded crime heatmap snapshot",
			logger.String("path", cfg.HeatmapPath),
			logger.Int("points", len(coll.Features)))
		return coll
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.Warn("unreadable crime heatmap snapshot",
			logger.String("path", cfg.HeatmapPath), logger.Error(err))
	}

	records, err := incident.Load(cfg.DatasetPath)
	if err == nil {
		features := HeatmapFeatures(incident.Filter(records, incident.DefaultFilterConfig()))
		if len(features) > 0 {
			log.Info("built crime heatmap from raw dataset",
				logger.String("path", cfg.DatasetPath),
				logger.Int("points", len(features)))
			return Collection{Type: "FeatureCollection", Features: features}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Warn("unreadable raw dataset",
			logger.String("path", cfg.DatasetPath), logger.Error(err))
	}

	log.Warn("no crime data available, using built-in sample points")
	return defaultHeatmap()
}

func loadPolygons(path string, heatmap []*geojson.Feature, log logger.Logger) ([]Polygon, map[string]interface{}) {
	coll, err := readCollection(path)
	if err == nil {
		polygons := decodePolygons(coll.Features, log)
		log.Info("loaded risk polygon snapshot",
			logger.String("path", path), logger.Int("polygons", len(polygons)))
		return polygons, coll.Metadata
	}

	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("risk polygon snapshot missing, buffering heatmap points",
			logger.String("path", path))
	} else {
		log.Error("unreadable risk polygon snapshot, buffering heatmap points",
			logger.String("path", path), logger.Error(err))
	}
	return pointBuffers(heatmap), nil
}

func decodePolygons(features []*geojson.Feature, log logger.Logger) []Polygon {
	polygons := make([]Polygon, 0, len(features))
	for i, f := range features {
		if f == nil {
			continue
		}
		geom, ok := f.Geometry.(orb.Polygon)
		if !ok || len(geom) == 0 || len(geom[0]) < 4 {
			log.Debug("skipping invalid risk polygon feature", logger.Int("index", i))
			continue
		}
		polygons = append(polygons, Polygon{
			Feature:   f,
			Geom:      geom,
			RiskScore: floatProp(f, "risk_score", 0),
		})
	}
	return polygons
}

// pointBuffers approximates risk zones directly from heatmap points so a
// deployment that has never run the generator still avoids something.
func pointBuffers(features []*geojson.Feature) []Polygon {
	polygons := make([]Polygon, 0, len(features))
	for _, f := range features {
		if f == nil {
			continue
		}
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}

		radius := fallbackBufferBase + fallbackBufferWeight*floatProp(f, "weight", fallbackPointWeight)
		poly := orb.Polygon{geo.Circle(pt, radius, circleSegments)}
		score := round2(math.Abs(planar.Area(poly)) * riskAreaScale)

		nf := geojson.NewFeature(poly)
		nf.Properties["risk_score"] = score
		polygons = append(polygons, Polygon{Feature: nf, Geom: poly, RiskScore: score})
	}
	return polygons
}

// defaultHeatmap covers a few lower-Manhattan blocks so a fresh checkout
// renders something before the first generator run.
func defaultHeatmap() Collection {
	points := []struct {
		lon, lat, weight float64
		category         string
	}{
		{-73.996, 40.719, 0.9, "robbery"},
		{-73.989, 40.717, 0.7, "assault"},
		{-74.002, 40.725, 0.8, "robbery"},
	}
	features := make([]*geojson.Feature, 0, len(points))
	for _, p := range points {
		f := geojson.NewFeature(orb.Point{p.lon, p.lat})
		f.Properties["weight"] = p.weight
		f.Properties["category"] = p.category
		features = append(features, f)
	}
	return Collection{Type: "FeatureCollection", Features: features}
}

func readCollection(path string) (Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Collection{}, err
	}

	var coll Collection
	if err := json.Unmarshal(data, &coll); err != nil {
		return Collection{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if coll.Features == nil {
		coll.Features = []*geojson.Feature{}
	}
	return coll, nil
}

func floatProp(f *geojson.Feature, key string, fallback float64) float64 {
	switch v := f.Properties[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
