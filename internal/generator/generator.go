// Package generator runs the offline risk pipeline: load raw crime records,
// filter them to relevant nighttime incidents, cluster, synthesize risk
// polygons and persist both snapshots.
package generator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/saferoute-nyc/saferoute/internal/cluster"
	apperrors "github.com/saferoute-nyc/saferoute/internal/errors"
	"github.com/saferoute-nyc/saferoute/internal/incident"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/risk"
	"github.com/saferoute-nyc/saferoute/internal/snapshot"
)

// Options configures one pipeline run. Zero values fall back to the
// defaults of the underlying stages.
type Options struct {
	InputPath    string
	HeatmapPath  string
	PolygonsPath string
	Eps          float64
	MinSamples   int
	Filter       incident.FilterConfig
}

// Summary reports what one pipeline run produced.
type Summary struct {
	RawCount      int
	FilteredCount int
	ClusterCount  int
	PolygonCount  int
	TotalRisk     float64
	AvgIncidents  float64
	MaxRisk       float64
}

// Generator runs the risk pipeline.
type Generator struct {
	log logger.Logger
}

// New builds a generator.
func New(log logger.Logger) *Generator {
	return &Generator{log: log}
}

// Run executes the pipeline once. When filtering leaves no incidents it
// returns an error without touching either snapshot, so a bad input file
// cannot wipe previously generated artifacts.
func (g *Generator) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := incident.Load(opts.InputPath)
	if err != nil {
		return nil, apperrors.WrapWithContext(err, "failed to load dataset")
	}

	filterCfg := opts.Filter
	if len(filterCfg.Categories) == 0 {
		filterCfg = incident.DefaultFilterConfig()
	}
	incidents := incident.Filter(records, filterCfg)
	g.log.Info("filtered incidents",
		logger.Int("raw", len(records)), logger.Int("kept", len(incidents)))
	if len(incidents) == 0 {
		return nil, fmt.Errorf("no relevant incidents in %d records from %s", len(records), opts.InputPath)
	}

	heatmapMeta := map[string]interface{}{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"source_file":  filepath.Base(opts.InputPath),
		"total_points": len(incidents),
	}
	if err := snapshot.WriteHeatmap(opts.HeatmapPath, snapshot.HeatmapFeatures(incidents), heatmapMeta); err != nil {
		return nil, apperrors.WrapWithContext(err, "failed to write heatmap snapshot")
	}

	clusters := cluster.Run(incidents, cluster.Params{Eps: opts.Eps, MinSamples: opts.MinSamples})
	polygons := risk.Synthesize(clusters)

	polygonMeta := map[string]interface{}{
		"generated_at":    time.Now().UTC().Format(time.RFC3339),
		"source_file":     filepath.Base(opts.InputPath),
		"total_incidents": len(incidents),
		"total_clusters":  len(clusters),
		"total_polygons":  len(polygons),
	}
	if err := snapshot.WritePolygons(opts.PolygonsPath, polygons, polygonMeta); err != nil {
		return nil, apperrors.WrapWithContext(err, "failed to write polygon snapshot")
	}

	summary := summarize(len(records), len(incidents), len(clusters), polygons)
	g.log.Info("risk generation complete",
		logger.Int("clusters", summary.ClusterCount),
		logger.Int("polygons", summary.PolygonCount),
		logger.Float64("total_risk", summary.TotalRisk))
	return summary, nil
}

func summarize(raw, filtered, clusters int, polygons []risk.Polygon) *Summary {
	s := &Summary{
		RawCount:      raw,
		FilteredCount: filtered,
		ClusterCount:  clusters,
		PolygonCount:  len(polygons),
	}

	incidents := 0
	for _, p := range polygons {
		s.TotalRisk += p.RiskScore
		incidents += p.IncidentCount
		if p.RiskScore > s.MaxRisk {
			s.MaxRisk = p.RiskScore
		}
	}
	if len(polygons) > 0 {
		s.AvgIncidents = float64(incidents) / float64(len(polygons))
	}
	return s
}
