// Package risk turns incident clusters into scored, buffered risk polygons.
package risk

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/saferoute-nyc/saferoute/internal/cluster"
)

const (
	// MinBuffer and MaxBuffer bound the per-cluster buffer radius in
	// degrees, roughly 50m and 150m.
	MinBuffer = 0.0005
	MaxBuffer = 0.0015

	// circleSegments is the resolution of each buffered point.
	circleSegments = 32

	// simplifyTolerance trims union artifacts. Kept far below the
	// clustering eps so simplification never moves an edge meaningfully.
	simplifyTolerance = 0.000005

	// riskAreaScale rescales degree² area into a readable score. It must
	// stay consistent between generation and consumption.
	riskAreaScale = 100000

	// metersPerDegree approximates degrees as meters at NYC latitude.
	metersPerDegree = 111000
)

// Polygon is a single risk zone derived from one cluster.
type Polygon struct {
	Geometry      orb.Polygon
	RiskScore     float64
	IncidentCount int
	AvgWeight     float64
	BufferMeters  float64
}

// Feature renders the polygon as a GeoJSON feature with its score
// properties.
func (p Polygon) Feature() *geojson.Feature {
	f := geojson.NewFeature(p.Geometry)
	f.Properties = geojson.Properties{
		"risk_score":     p.RiskScore,
		"incident_count": p.IncidentCount,
		"avg_weight":     p.AvgWeight,
		"buffer_meters":  p.BufferMeters,
	}
	return f
}

// BufferRadius computes the buffer radius in degrees for a cluster: a
// linear blend between MinBuffer and MaxBuffer weighted half by average
// incident weight and half by a density factor capped at 10 incidents.
func BufferRadius(avgWeight float64, count int) float64 {
	density := math.Min(float64(count)/10.0, 1.0)
	return MinBuffer + (MaxBuffer-MinBuffer)*(avgWeight*0.5+density*0.5)
}

// Synthesize builds one risk polygon per cluster. Clusters producing
// degenerate geometry are discarded and synthesis continues. The output is
// deterministic for identical input.
func Synthesize(clusters []cluster.Cluster) []Polygon {
	polygons := make([]Polygon, 0, len(clusters))
	for _, c := range clusters {
		if p, ok := fromCluster(c); ok {
			polygons = append(polygons, p)
		}
	}
	return polygons
}

func fromCluster(c cluster.Cluster) (Polygon, bool) {
	if len(c) == 0 {
		return Polygon{}, false
	}

	var totalWeight float64
	for _, inc := range c {
		totalWeight += inc.Weight
	}
	avgWeight := totalWeight / float64(len(c))
	radius := BufferRadius(avgWeight, len(c))

	geom, ok := bufferUnion(clusterPoints(c), radius)
	if !ok {
		return Polygon{}, false
	}

	area := math.Abs(planar.Area(geom))
	if math.IsNaN(area) || math.IsInf(area, 0) || area == 0 {
		return Polygon{}, false
	}

	score := float64(len(c)) * avgWeight * (area * riskAreaScale)

	return Polygon{
		Geometry:      geom,
		RiskScore:     round2(score),
		IncidentCount: len(c),
		AvgWeight:     round2(avgWeight),
		BufferMeters:  math.Round(radius * metersPerDegree),
	}, true
}

// clusterPoints returns the distinct coordinates in the cluster, in first
// appearance order. Coincident incidents buffer to the same circle, so
// deduplicating keeps the union clean.
func clusterPoints(c cluster.Cluster) []orb.Point {
	points := make([]orb.Point, 0, len(c))
	seen := make(map[orb.Point]struct{}, len(c))
	for _, inc := range c {
		pt := orb.Point{inc.Lon, inc.Lat}
		if _, ok := seen[pt]; ok {
			continue
		}
		seen[pt] = struct{}{}
		points = append(points, pt)
	}
	return points
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
